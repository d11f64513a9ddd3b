package pipeline

// State is a step of a single run.
type State string

const (
	StateReceived       State = "received"
	StateAnalyzed       State = "analyzed"
	StateSearching      State = "searching"
	StateSearchFailed   State = "search_failed"
	StateSearchEmpty    State = "search_empty"
	StateSearchOk       State = "search_ok"
	StateComparing      State = "comparing"
	StateCompareFailed  State = "compare_failed"
	StateFallbackScored State = "fallback_scored"
	StateCompareOk      State = "compare_ok"
	StateSelected       State = "selected"
	StateDelivered      State = "delivered"
)

// Outcome is how a run ended.
type Outcome string

const (
	// OutcomeRanked means the reasoning service scored the candidates.
	OutcomeRanked Outcome = "ranked"
	// OutcomeFallback means candidates were delivered with heuristic scores.
	OutcomeFallback Outcome = "fallback"
	// OutcomeNoRelevant means every scored candidate fell below the threshold.
	OutcomeNoRelevant Outcome = "no_relevant"
	// OutcomeNoSources means the providers answered but found nothing.
	OutcomeNoSources Outcome = "no_sources"
	// OutcomeNoProviders means no provider holds credentials.
	OutcomeNoProviders Outcome = "no_providers"
	// OutcomeEmptyText means there was nothing to search for.
	OutcomeEmptyText Outcome = "empty_text"
	// OutcomeFailed means the run was cut short, usually by its deadline.
	OutcomeFailed Outcome = "failed"
)
