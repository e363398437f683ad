package triage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleanymail/cleany/internal/gmail"
)

// okServer answers every request with a healthy unsubscribe page.
func okServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("you are unsubscribed"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return NewResolver(NewGuard(nil, nil), NewValidator(WithValidatorTimeout(2*time.Second)))
}

func TestResolver_SkipsProtectedSender(t *testing.T) {
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "security@paypal.com",
		Subject: "New device sign-in",
		Headers: []gmail.Header{
			{Name: "List-Unsubscribe", Value: "<https://example.com/unsubscribe>"},
		},
	}

	res := r.Resolve(context.Background(), msg)
	assert.Equal(t, OutcomeSkippedSystem, res.Outcome)
	assert.Nil(t, res.Candidate)
}

func TestResolver_HeaderHTTPPreferredOverMailto(t *testing.T) {
	srv := okServer(t)
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "news@letters.example",
		Subject: "Latest issue",
		Headers: []gmail.Header{
			{Name: "List-Unsubscribe", Value: "<mailto:unsub@letters.example>, <" + srv.URL + "/unsubscribe>"},
		},
	}

	res := r.Resolve(context.Background(), msg)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, MethodGet, res.Candidate.Method)
	assert.Equal(t, srv.URL+"/unsubscribe", res.Candidate.URL)
}

func TestResolver_MailtoOnlyHeaderSurfacedNotExecuted(t *testing.T) {
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "news@letters.example",
		Subject: "Latest issue",
		Headers: []gmail.Header{
			{Name: "list-unsubscribe", Value: "<mailto:unsub@letters.example?subject=unsubscribe>"},
		},
	}

	res := r.Resolve(context.Background(), msg)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, MethodMailto, res.Candidate.Method)
	assert.Equal(t, "mailto:unsub@letters.example?subject=unsubscribe", res.Candidate.URL)
}

func TestResolver_HeaderNonHTTPEntrySurfaced(t *testing.T) {
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "news@letters.example",
		Subject: "Latest issue",
		Headers: []gmail.Header{
			{Name: "List-Unsubscribe", Value: "<tel:+15551234567>"},
		},
	}

	// The first entry is surfaced even with an unusual scheme; it is marked
	// for manual handling and never auto-executed.
	res := r.Resolve(context.Background(), msg)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, MethodMailto, res.Candidate.Method)
	assert.Equal(t, "tel:+15551234567", res.Candidate.URL)
}

func TestResolver_BodyScanPrefersIntentLink(t *testing.T) {
	srv := okServer(t)
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "deals@shop.example",
		Subject: "Sale",
		Links: []string{
			"https://click.shop.example/track/123",
			srv.URL + "/unsubscribe?u=5",
		},
	}

	res := r.Resolve(context.Background(), msg)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, srv.URL+"/unsubscribe?u=5", res.Candidate.URL)
	assert.Equal(t, MethodGet, res.Candidate.Method)
}

func TestResolver_BodyScanFindsHTMLAnchors(t *testing.T) {
	srv := okServer(t)
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "deals@shop.example",
		Subject: "Sale",
		RawBody: `<html><body><p>Hi!</p><a href="` + srv.URL + `/opt-out">Stop emails</a></body></html>`,
	}

	res := r.Resolve(context.Background(), msg)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, srv.URL+"/opt-out", res.Candidate.URL)
}

func TestResolver_DiscardedCandidateFallsToRawHeader(t *testing.T) {
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "news@letters.example",
		Subject: "Latest issue",
		Headers: []gmail.Header{
			// Token URLs are discarded by validation, but the raw header
			// fallback still surfaces the https link.
			{Name: "List-Unsubscribe", Value: "<https://letters.example/unsubscribe?token=abc>"},
		},
	}

	res := r.Resolve(context.Background(), msg)
	require.Equal(t, OutcomeResolved, res.Outcome)
	require.NotNil(t, res.Candidate)
	assert.Equal(t, "https://letters.example/unsubscribe?token=abc", res.Candidate.URL)
}

func TestResolver_NotFound(t *testing.T) {
	r := newTestResolver(t)

	msg := &gmail.Message{
		Sender:  "friend@personal.example",
		Subject: "Lunch tomorrow?",
		Body:    "See you at noon",
	}

	res := r.Resolve(context.Background(), msg)
	assert.Equal(t, OutcomeNotFound, res.Outcome)
	assert.Nil(t, res.Candidate)
}

func TestBodyLinks_MergesAndDeduplicates(t *testing.T) {
	msg := &gmail.Message{
		Links: []string{"https://a.example/x"},
		RawBody: `<a href="https://a.example/x">dup</a>` +
			`<a href="https://b.example/y">new</a>` +
			`<a href="mailto:x@y.z">mail</a>`,
	}

	links := bodyLinks(msg)
	assert.Equal(t, []string{"https://a.example/x", "https://b.example/y"}, links)
}
