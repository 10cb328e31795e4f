package models

// Outcome is the terminal status of processing one URL.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeSkipped          Outcome = "skipped"
	OutcomePermanentFailure Outcome = "permanent_failure"
)

// Skip reasons shared by the fetcher and classifier.
const (
	ReasonDuplicate    = "duplicate"
	ReasonNoHashtag    = "no registered hashtag"
	ReasonFetchFailed  = "fetch failed"
	ReasonTransient    = "transient fetch failure"
	ReasonNotReturned  = "not returned by metadata source"
	ReasonLedger       = "listed in invalid-url ledger"
	ReasonProbeFailed  = "detail page probe failed"
	ReasonUnrecognized = "unrecognized url"
)

// ItemResult records what happened to one URL. Err is set for fetch and probe failures.
type ItemResult struct {
	URL     CanonicalURL
	Outcome Outcome
	Reason  string
	Err     error
}

// Success builds a success result.
func Success(url CanonicalURL) ItemResult {
	return ItemResult{URL: url, Outcome: OutcomeSuccess}
}

// Skipped builds a skipped result.
func Skipped(url CanonicalURL, reason string, err error) ItemResult {
	return ItemResult{URL: url, Outcome: OutcomeSkipped, Reason: reason, Err: err}
}

// PermanentFailure builds a permanent failure result.
func PermanentFailure(url CanonicalURL, reason string, err error) ItemResult {
	return ItemResult{URL: url, Outcome: OutcomePermanentFailure, Reason: reason, Err: err}
}

// CountOutcomes tallies results by outcome.
func CountOutcomes(results []ItemResult) map[Outcome]int {
	counts := make(map[Outcome]int, 3)
	for _, r := range results {
		counts[r.Outcome]++
	}
	return counts
}
