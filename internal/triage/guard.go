package triage

import (
	"strings"

	"github.com/cleanymail/cleany/internal/gmail"
)

// Guard protects system and transactional mail from triage. A protected
// message is never resolved for unsubscribe links and never bulk-deleted by
// suggestion flows.
type Guard struct {
	domains  []string
	keywords []string
}

// DefaultSystemDomains returns the built-in list of protected sender domains.
func DefaultSystemDomains() []string {
	return []string{
		"google.com",
		"gmail.com",
		"paypal.com",
		"amazon.com",
		"apple.com",
		"microsoft.com",
		"github.com",
		"linkedin.com",
		"facebook.com",
		"x.com",
		"twitter.com",
		"instagram.com",
		"bankofamerica.com",
		"chase.com",
		"wellsfargo.com",
		"stripe.com",
		"notion.so",
		"openai.com",
		"supabase.io",
		"vercel.com",
	}
}

// DefaultSystemKeywords returns the built-in list of protected subject keywords.
func DefaultSystemKeywords() []string {
	return []string{
		"security alert",
		"password",
		"verification code",
		"two-factor",
		"receipt",
		"invoice",
		"payment",
		"order confirmation",
		"purchase",
		"login",
		"notification",
		"access granted",
	}
}

// NewGuard creates a Guard with the given protected domain and subject keyword
// lists. Empty lists fall back to the built-in defaults.
func NewGuard(domains, keywords []string) *Guard {
	if len(domains) == 0 {
		domains = DefaultSystemDomains()
	}
	if len(keywords) == 0 {
		keywords = DefaultSystemKeywords()
	}
	return &Guard{domains: domains, keywords: keywords}
}

// IsProtected reports whether the message comes from a protected system
// sender. Matches when the sender domain contains a protected domain entry or
// the subject contains a protected keyword, both case-insensitively.
func (g *Guard) IsProtected(msg *gmail.Message) bool {
	domain := strings.ToLower(msg.SenderDomain())
	for _, d := range g.domains {
		if strings.Contains(domain, d) {
			return true
		}
	}

	subject := strings.ToLower(msg.Subject)
	for _, k := range g.keywords {
		if strings.Contains(subject, k) {
			return true
		}
	}

	return false
}
