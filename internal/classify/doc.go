// Package classify is the optional LLM layer. It asks an OpenAI-compatible
// endpoint to suggest triage actions for a batch of emails via a function
// call, and to phrase short summaries of triage statistics. A failing or
// unconfigured classifier never blocks the deterministic triage flow.
package classify
