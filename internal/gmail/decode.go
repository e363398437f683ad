package gmail

import (
	"encoding/base64"
	"regexp"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

var (
	urlRe      = regexp.MustCompile(`https?://[^\s"'<>]+`)
	tagRe      = regexp.MustCompile(`<[^>]*>`)
	nonASCIIRe = regexp.MustCompile(`[^\x00-\x7F]`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// DecoderConfig controls how raw Gmail messages are turned into Messages.
type DecoderConfig struct {
	// NewsletterPlatforms are substrings matched against the sender address
	// to flag messages from known newsletter services.
	NewsletterPlatforms []string
}

// DefaultDecoderConfig returns the decoder configuration with the built-in
// newsletter platform list.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		NewsletterPlatforms: []string{
			"substack",
			"beehiiv",
			"convertkit",
			"mailchimp",
			"buttondown",
			"ghost.io",
			"revue",
		},
	}
}

// Decoder converts raw Gmail API messages into triage-ready Messages.
// Decoding is best-effort and never fails: malformed MIME data degrades to
// empty fields rather than errors.
type Decoder struct {
	cfg DecoderConfig
}

// NewDecoder creates a Decoder with the given configuration.
func NewDecoder(cfg DecoderConfig) *Decoder {
	if len(cfg.NewsletterPlatforms) == 0 {
		cfg = DefaultDecoderConfig()
	}
	return &Decoder{cfg: cfg}
}

// Decode converts a full-format Gmail API message into a Message.
func (d *Decoder) Decode(msg *gmail.Message) *Message {
	m := &Message{
		ID:           msg.Id,
		ThreadID:     msg.ThreadId,
		Snippet:      msg.Snippet,
		InternalDate: msg.InternalDate,
	}

	if msg.Payload != nil {
		m.Headers = collectHeaders(msg.Payload)
	}

	m.Sender = m.HeaderValue("From")

	rawBody := decodeBestBodyPart(msg.Payload)
	m.RawBody = rawBody
	m.Links = urlRe.FindAllString(rawBody, -1)
	m.Body = cleanText(rawBody)

	m.Subject = d.subject(m, rawBody)
	m.IsNewsletter = d.isNewsletter(m)

	return m
}

// subject resolves the display subject: the Subject header, else the first
// non-blank line of the decoded body, else the cleaned snippet, else a
// placeholder.
func (d *Decoder) subject(m *Message, rawBody string) string {
	if s := strings.TrimSpace(m.HeaderValue("Subject")); s != "" {
		return s
	}
	for _, line := range strings.Split(rawBody, "\n") {
		if s := cleanText(line); s != "" {
			return s
		}
	}
	if s := cleanText(m.Snippet); s != "" {
		return s
	}
	return "No subject"
}

func (d *Decoder) isNewsletter(m *Message) bool {
	sender := strings.ToLower(m.Sender)
	body := strings.ToLower(m.RawBody)
	for _, platform := range d.cfg.NewsletterPlatforms {
		if strings.Contains(sender, platform) || strings.Contains(body, platform) {
			return true
		}
	}
	subject := strings.ToLower(m.Subject)
	return strings.Contains(subject, "newsletter") || strings.Contains(subject, "digest")
}

// collectHeaders returns the union of the envelope headers and the headers of
// all nested MIME parts, envelope first.
func collectHeaders(payload *gmail.MessagePart) []Header {
	var out []Header
	var walk func(part *gmail.MessagePart)
	walk = func(part *gmail.MessagePart) {
		if part == nil {
			return
		}
		for _, h := range part.Headers {
			out = append(out, Header{Name: h.Name, Value: h.Value})
		}
		for _, p := range part.Parts {
			walk(p)
		}
	}
	walk(payload)
	return out
}

// decodeBestBodyPart picks the first text/html or text/plain part with body
// data, falling back to the top-level payload, and decodes it.
func decodeBestBodyPart(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if part := findTextPart(payload); part != nil {
		return decodeBase64Text(part.Body.Data)
	}
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBase64Text(payload.Body.Data)
	}
	return ""
}

func findTextPart(part *gmail.MessagePart) *gmail.MessagePart {
	if part.Body != nil && part.Body.Data != "" {
		mt := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mt, "text/html") || strings.HasPrefix(mt, "text/plain") {
			return part
		}
	}
	for _, p := range part.Parts {
		if found := findTextPart(p); found != nil {
			return found
		}
	}
	return nil
}

// decodeBase64Text decodes Gmail body data, which is base64url with or
// without padding. Undecodable input is returned as-is.
func decodeBase64Text(data string) string {
	if data == "" {
		return ""
	}
	if b, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	if b, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(b)
	}
	return data
}

// cleanText strips URLs, markup tags and non-ASCII characters and collapses
// whitespace.
func cleanText(s string) string {
	s = urlRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = nonASCIIRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
