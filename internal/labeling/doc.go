// Package labeling forwards image-labeling requests to the inference
// endpoint chosen by the router and relays the endpoint's JSON unchanged.
//
// Client mistakes (no image, no prompt) are reported before any endpoint is
// contacted. Every upstream problem collapses into ErrUpstream for callers;
// the underlying cause travels in an *UpstreamError for logging only.
package labeling
