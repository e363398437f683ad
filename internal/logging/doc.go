// Package logging provides structured logging utilities for the cleany application.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Structured logging with slog (tint console handler or JSON)
//   - PII sanitization (email anonymization)
//   - Consistent attribute naming across the codebase
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "gmail.search")
//	logger.Info("searching messages",
//	    logging.Status("success"))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("sender processed",
//	    logging.UserHash(sender))
//
// # Security Considerations
//
// Sender addresses are hashed to prevent PII leakage while allowing correlation,
// and tokens are never logged directly.
package logging
