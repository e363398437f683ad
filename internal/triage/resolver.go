package triage

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/cleanymail/cleany/internal/gmail"
	"github.com/cleanymail/cleany/internal/instrumentation"
	"github.com/cleanymail/cleany/internal/logging"
)

var (
	intentRe     = regexp.MustCompile(`(?i)unsubscribe|opt.?out|remove|manage.?pref|notification|v=off|optin=0`)
	redirectorRe = regexp.MustCompile(`(?i)link\.|click\.|email\.|u\.|campaign\.`)
	rawHeaderRe  = regexp.MustCompile(`https?://[^\s<>]+`)
)

// stage is one step of the resolution pipeline. Each stage inspects the
// message and the candidate accumulated so far and returns the (possibly
// replaced or discarded) candidate.
type stage func(ctx context.Context, msg *gmail.Message, current *UnsubscribeCandidate) *UnsubscribeCandidate

// Resolver locates the unsubscribe mechanism of a message. Stages run in a
// fixed order; protected system senders are rejected before any stage runs.
type Resolver struct {
	guard     *Guard
	validator *Validator
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
	stages    []stage
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithResolverMetrics attaches a metrics recorder counting outcomes.
func WithResolverMetrics(m *instrumentation.Metrics) ResolverOption {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// WithResolverLogger overrides the resolver logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = l
	}
}

// NewResolver creates a Resolver using the given guard and validator.
func NewResolver(guard *Guard, validator *Validator, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		guard:     guard,
		validator: validator,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.stages = []stage{
		r.stageListUnsubscribeHeader,
		r.stageBodyScan,
		r.stageValidate,
		r.stageRawHeaderFallback,
	}
	return r
}

// Resolve runs the full pipeline against a decoded message.
func (r *Resolver) Resolve(ctx context.Context, msg *gmail.Message) Resolution {
	ctx, span := instrumentation.StartOperationSpan(ctx, "resolve")
	defer span.End()

	res := r.resolve(ctx, msg)
	instrumentation.SetSpanOutcome(span, string(res.Outcome))
	if r.metrics != nil {
		r.metrics.RecordResolution(ctx, string(res.Outcome))
	}
	r.logger.Debug("resolution finished", logging.Outcome(string(res.Outcome)))
	return res
}

func (r *Resolver) resolve(ctx context.Context, msg *gmail.Message) Resolution {
	if r.guard.IsProtected(msg) {
		r.logger.Debug("skipping protected sender",
			logging.UserHash(msg.SenderEmail()),
			logging.Domain(msg.SenderEmail()))
		return Resolution{Outcome: OutcomeSkippedSystem}
	}

	var candidate *UnsubscribeCandidate
	for _, s := range r.stages {
		candidate = s(ctx, msg, candidate)
	}

	if candidate == nil {
		return Resolution{Outcome: OutcomeNotFound}
	}
	return Resolution{Outcome: OutcomeResolved, Candidate: candidate}
}

// stageListUnsubscribeHeader parses the RFC 2369 List-Unsubscribe header.
// Entries are stripped of angle brackets and split on commas; the first http
// entry wins. Without one the first entry is surfaced regardless of scheme as
// a manual candidate, which later stages may still replace.
func (r *Resolver) stageListUnsubscribeHeader(_ context.Context, msg *gmail.Message, current *UnsubscribeCandidate) *UnsubscribeCandidate {
	header := msg.HeaderValue("List-Unsubscribe")
	if header == "" {
		return current
	}

	cleaned := strings.NewReplacer("<", "", ">", "").Replace(header)
	var entries []string
	for _, e := range strings.Split(cleaned, ",") {
		if e = strings.TrimSpace(e); e != "" {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return current
	}

	for _, e := range entries {
		if strings.HasPrefix(e, "http") {
			return &UnsubscribeCandidate{URL: e, Method: MethodGet}
		}
	}

	return &UnsubscribeCandidate{URL: entries[0], Method: MethodMailto}
}

// stageBodyScan searches the message body for unsubscribe links. It only runs
// when the header stage produced nothing or a mailto candidate, and never
// downgrades an existing http candidate.
func (r *Resolver) stageBodyScan(_ context.Context, msg *gmail.Message, current *UnsubscribeCandidate) *UnsubscribeCandidate {
	if current != nil && current.Method != MethodMailto {
		return current
	}

	links := bodyLinks(msg)
	if len(links) == 0 {
		return current
	}

	var candidates []string
	for _, l := range links {
		if intentRe.MatchString(l) || redirectorRe.MatchString(l) {
			candidates = append(candidates, l)
		}
	}
	if len(candidates) == 0 {
		return current
	}

	chosen := candidates[0]
	for _, c := range candidates {
		if intentRe.MatchString(c) {
			chosen = c
			break
		}
	}
	return &UnsubscribeCandidate{URL: chosen, Method: MethodGet}
}

// stageValidate confirms http candidates with the validator. Discarded
// candidates fall through to the raw header stage. Mailto candidates are
// passed along untouched.
func (r *Resolver) stageValidate(ctx context.Context, msg *gmail.Message, current *UnsubscribeCandidate) *UnsubscribeCandidate {
	if current == nil || current.Method == MethodMailto {
		return current
	}

	vr := r.validator.Validate(ctx, current.URL)
	if !vr.OK {
		r.logger.Debug("discarded candidate after validation",
			"sender_domain", msg.SenderDomain(), "url", current.URL)
		return nil
	}
	current.URL = vr.FinalURL
	return current
}

// stageRawHeaderFallback is the last resort: any header literally named
// List-Unsubscribe whose value carries an https link, regardless of
// formatting.
func (r *Resolver) stageRawHeaderFallback(_ context.Context, msg *gmail.Message, current *UnsubscribeCandidate) *UnsubscribeCandidate {
	if current != nil {
		return current
	}

	for _, h := range msg.Headers {
		if h.Name != "List-Unsubscribe" || !strings.Contains(h.Value, "https") {
			continue
		}
		if m := rawHeaderRe.FindString(h.Value); m != "" {
			return &UnsubscribeCandidate{URL: m, Method: MethodGet}
		}
	}
	return nil
}

// bodyLinks merges the plain-text links the decoder extracted with anchor
// targets parsed out of the HTML body.
func bodyLinks(msg *gmail.Message) []string {
	links := append([]string(nil), msg.Links...)
	seen := make(map[string]bool, len(links))
	for _, l := range links {
		seen[l] = true
	}

	if strings.Contains(msg.RawBody, "<") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(msg.RawBody)); err == nil {
			doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
				href, _ := sel.Attr("href")
				if strings.HasPrefix(href, "http") && !seen[href] {
					seen[href] = true
					links = append(links, href)
				}
			})
		}
	}

	return links
}
