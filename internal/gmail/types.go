package gmail

import (
	"net/mail"
	"strings"
)

// Header is a single RFC 2822 header as returned by the Gmail API,
// with the original casing of the name preserved.
type Header struct {
	Name  string
	Value string
}

// Message is the decoded, triage-ready view of a Gmail message.
type Message struct {
	ID       string
	ThreadID string

	// Sender is the raw From header value, e.g. `News <news@example.com>`.
	Sender string

	Subject string
	Snippet string

	// Headers is the union of the envelope headers and the headers of all
	// MIME parts, envelope first.
	Headers []Header

	// RawBody is the decoded best body part before any cleanup. HTML
	// messages keep their markup here.
	RawBody string

	// Body is the cleaned text of the best body part: URLs stripped,
	// non-ASCII removed, whitespace collapsed.
	Body string

	// Links are the http(s) URLs found in the body before cleaning.
	Links []string

	// InternalDate is the Gmail internal timestamp in epoch milliseconds.
	InternalDate int64

	IsNewsletter bool
}

// HeaderValue returns the value of the first header matching name,
// case-insensitively. Returns the empty string if not present.
func (m *Message) HeaderValue(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// SenderEmail returns the bare email address of the sender, lowercased.
// Falls back to the raw sender string when the From header does not parse.
func (m *Message) SenderEmail() string {
	return NormalizeSender(m.Sender)
}

// SenderDomain returns the part of the sender address after the "@",
// lowercased. When the sender has no "@" the whole sender string is returned.
func (m *Message) SenderDomain() string {
	addr := m.SenderEmail()
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}

// NormalizeSender extracts the bare, lowercased address from a From header
// value such as `Jane Doe <jane@example.com>`. Unparseable input is returned
// trimmed and lowercased as-is.
func NormalizeSender(sender string) string {
	addr, err := mail.ParseAddress(sender)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(sender))
	}
	return strings.ToLower(addr.Address)
}
