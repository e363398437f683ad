package triage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidator_KeepsHealthyIntentURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("You have been removed from this list."))
	}))
	defer srv.Close()

	v := NewValidator(WithValidatorTimeout(2 * time.Second))
	url := srv.URL + "/unsubscribe"

	res := v.Validate(context.Background(), url)
	assert.True(t, res.OK)
	assert.Equal(t, url, res.FinalURL)
}

func TestValidator_DiscardsTokenURL(t *testing.T) {
	v := NewValidator()

	res := v.Validate(context.Background(), "https://example.com/unsubscribe?token=abc123")
	assert.False(t, res.OK)
}

func TestValidator_DiscardsExpiredPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Oops! This link has expired."))
	}))
	defer srv.Close()

	v := NewValidator(WithValidatorTimeout(2 * time.Second))

	res := v.Validate(context.Background(), srv.URL+"/unsubscribe")
	assert.False(t, res.OK)
}

func TestValidator_FollowsRedirectToIntentURL(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/r", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/unsubscribe?list=9", http.StatusFound)
	})
	mux.HandleFunc("/unsubscribe", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("all done"))
	})

	v := NewValidator(WithValidatorTimeout(2 * time.Second))

	// /r does not look like an unsubscribe link, so the redirect target is
	// confirmed and substituted.
	res := v.Validate(context.Background(), srv.URL+"/r")
	assert.True(t, res.OK)
	assert.Contains(t, res.FinalURL, "/unsubscribe")
}

func TestValidator_NetworkFailureKeepsOriginal(t *testing.T) {
	v := NewValidator(WithValidatorTimeout(500 * time.Millisecond))

	// Unroutable port: both confirmation passes fail, candidate is kept.
	url := "http://127.0.0.1:1/unsubscribe"
	res := v.Validate(context.Background(), url)
	assert.True(t, res.OK)
	assert.Equal(t, url, res.FinalURL)
}
