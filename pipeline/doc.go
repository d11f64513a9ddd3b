// Package pipeline drives a source discovery run from raw text to a
// delivered answer.
//
// A run analyzes the text, searches the provider chain with the generated
// queries, asks the comparator to score the candidates and selects the best
// few. Every run ends with exactly one final notification, including the
// negative outcomes (nothing to search, no providers, no sources). When the
// comparator fails outright the first candidates are delivered with neutral
// heuristic scores instead.
//
// Submit hands the run to a non-blocking ants worker pool and acknowledges
// the requester once a worker has taken it, so transports with short
// response deadlines can answer before the run completes. A saturated pool
// is reported at once with ErrPipelineBusy.
package pipeline
