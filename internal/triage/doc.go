// Package triage implements the core inbox triage engine: deciding which
// senders are safe to touch, locating unsubscribe mechanisms, and running
// bulk delete operations.
//
// The Guard shields system and transactional senders (banks, login codes,
// receipts) from every destructive path. The Resolver walks a fixed pipeline
// over a decoded message: List-Unsubscribe header, body link scan, candidate
// validation, and a raw header fallback. The Validator confirms that a found
// link is still actionable without ever failing hard. The Operator performs
// paced, capped bulk deletions per sender, with rate limits retried using
// exponential backoff. The Executor fires the final unsubscribe request;
// mailto candidates are surfaced but never executed automatically.
package triage
