package gmail

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
)

func b64(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func b64raw(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func textPart(mimeType, body string) *gmail.MessagePart {
	return &gmail.MessagePart{
		MimeType: mimeType,
		Body:     &gmail.MessagePartBody{Data: b64(body)},
	}
}

func TestDecode_Basic(t *testing.T) {
	d := NewDecoder(DefaultDecoderConfig())

	msg := &gmail.Message{
		Id:           "msg-1",
		ThreadId:     "thread-1",
		Snippet:      "hello there",
		InternalDate: 1700000000000,
		Payload: &gmail.MessagePart{
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "News <news@example.com>"},
				{Name: "Subject", Value: "Weekly update"},
			},
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: b64("Some text https://example.com/unsubscribe done")},
		},
	}

	m := d.Decode(msg)

	assert.Equal(t, "msg-1", m.ID)
	assert.Equal(t, "thread-1", m.ThreadID)
	assert.Equal(t, "News <news@example.com>", m.Sender)
	assert.Equal(t, "Weekly update", m.Subject)
	assert.Equal(t, int64(1700000000000), m.InternalDate)
	assert.Equal(t, []string{"https://example.com/unsubscribe"}, m.Links)
	assert.Equal(t, "Some text done", m.Body)
}

func TestDecode_NestedParts(t *testing.T) {
	d := NewDecoder(DefaultDecoderConfig())

	msg := &gmail.Message{
		Id: "msg-2",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "a@b.com"},
				{Name: "Subject", Value: "Nested"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "multipart/related",
					Headers: []*gmail.MessagePartHeader{
						{Name: "List-Unsubscribe", Value: "<https://example.com/u>"},
					},
					Parts: []*gmail.MessagePart{
						textPart("text/html", `<p>Click <a href="https://example.com/opt-out">here</a></p>`),
					},
				},
			},
		},
	}

	m := d.Decode(msg)

	// Headers from nested parts are visible
	assert.Equal(t, "<https://example.com/u>", m.HeaderValue("list-unsubscribe"))
	// Link found in HTML body
	require.Len(t, m.Links, 1)
	assert.Contains(t, m.Links[0], "example.com/opt-out")
	// Tags and URLs stripped from the cleaned body
	assert.Equal(t, "Click here", m.Body)
}

func TestDecode_RawBase64Fallback(t *testing.T) {
	d := NewDecoder(DefaultDecoderConfig())

	msg := &gmail.Message{
		Id: "msg-3",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmail.MessagePartHeader{
				{Name: "Subject", Value: "Raw encoding"},
			},
			Body: &gmail.MessagePartBody{Data: b64raw("unpadded body text")},
		},
	}

	m := d.Decode(msg)
	assert.Equal(t, "unpadded body text", m.Body)
}

func TestDecode_MalformedBodyNeverFails(t *testing.T) {
	d := NewDecoder(DefaultDecoderConfig())

	msg := &gmail.Message{
		Id: "msg-4",
		Payload: &gmail.MessagePart{
			MimeType: "text/plain",
			Body:     &gmail.MessagePartBody{Data: "!!not base64!!"},
		},
	}

	m := d.Decode(msg)
	assert.NotNil(t, m)
	assert.Equal(t, "!!not base64!!", m.Body)
}

func TestDecode_SubjectFallback(t *testing.T) {
	d := NewDecoder(DefaultDecoderConfig())

	tests := []struct {
		name    string
		msg     *gmail.Message
		subject string
	}{
		{
			name: "falls back to first body line",
			msg: &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: b64("\n\nFirst real line\nsecond line")},
				},
			},
			subject: "First real line",
		},
		{
			name: "falls back to snippet",
			msg: &gmail.Message{
				Snippet: "snippet text",
				Payload: &gmail.MessagePart{},
			},
			subject: "snippet text",
		},
		{
			name:    "placeholder when nothing available",
			msg:     &gmail.Message{},
			subject: "No subject",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := d.Decode(tt.msg)
			assert.Equal(t, tt.subject, m.Subject)
		})
	}
}

func TestDecode_Newsletter(t *testing.T) {
	d := NewDecoder(DefaultDecoderConfig())

	tests := []struct {
		name       string
		from       string
		subject    string
		body       string
		newsletter bool
	}{
		{"substack sender", "Author <author@substack.com>", "Essay", "", true},
		{"mailchimp sender", "shop@mail.mailchimp.com", "Deals", "", true},
		{"newsletter subject", "friend@example.com", "My Newsletter #42", "", true},
		{"digest subject", "updates@example.com", "Weekly Digest", "", true},
		{"platform in body", "jane@example.com", "Come read my stuff", "I moved my writing over to substack.com, see you there", true},
		{"platform link in body", "jane@example.com", "New post", `Read it at <a href="https://example.beehiiv.com/p/1">the site</a>`, true},
		{"plain mail", "friend@example.com", "Lunch?", "See you at noon", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &gmail.Message{
				Payload: &gmail.MessagePart{
					MimeType: "text/plain",
					Headers: []*gmail.MessagePartHeader{
						{Name: "From", Value: tt.from},
						{Name: "Subject", Value: tt.subject},
					},
					Body: &gmail.MessagePartBody{Data: b64(tt.body)},
				},
			}
			m := d.Decode(msg)
			assert.Equal(t, tt.newsletter, m.IsNewsletter)
		})
	}
}

func TestHeaderValue_CaseInsensitive(t *testing.T) {
	m := &Message{
		Headers: []Header{
			{Name: "List-Unsubscribe", Value: "<https://example.com/u>"},
			{Name: "subject", Value: "lower"},
		},
	}

	assert.Equal(t, "<https://example.com/u>", m.HeaderValue("LIST-UNSUBSCRIBE"))
	assert.Equal(t, "lower", m.HeaderValue("Subject"))
	assert.Equal(t, "", m.HeaderValue("X-Missing"))
}

func TestNormalizeSender(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"display name", "Jane Doe <Jane@Example.COM>", "jane@example.com"},
		{"bare address", "news@example.com", "news@example.com"},
		{"unparseable", "not an address", "not an address"},
		{"whitespace", "  weird input  ", "weird input"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeSender(tt.sender))
		})
	}
}

func TestSenderDomain(t *testing.T) {
	tests := []struct {
		name   string
		sender string
		want   string
	}{
		{"with display name", "News <news@Mail.Example.com>", "mail.example.com"},
		{"bare address", "a@b.com", "b.com"},
		{"no at sign", "localpart", "localpart"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &Message{Sender: tt.sender}
			assert.Equal(t, tt.want, m.SenderDomain())
		})
	}
}
