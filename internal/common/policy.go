package common

import "errors"

// Action is what a pipeline does with a failed unit of work.
type Action int

// Possible actions at a suspension point.
const (
	// ActionRetry re-attempts the unit of work, subject to a retry budget.
	ActionRetry Action = iota
	// ActionSkip abandons the unit of work and continues with the next one.
	ActionSkip
	// ActionPause persists accumulated progress and ends the run in a
	// resumable state. Not an error: "call again later" semantics.
	ActionPause
	// ActionFail aborts the current invocation and surfaces the error.
	ActionFail
)

// Policy maps the four failure tiers (rate-limit, transport, validation,
// parse) to actions. Each pipeline applies one policy uniformly at every
// suspension point instead of branching ad hoc at each call site.
type Policy struct {
	OnRateLimit  Action
	OnTransport  Action
	OnValidation Action
	OnParse      Action
}

// SamplingPolicy governs the folder-sampling loop: rate limits pause the
// run, a bad folder is skipped, auth problems end it.
var SamplingPolicy = Policy{
	OnRateLimit:  ActionPause,
	OnTransport:  ActionSkip,
	OnValidation: ActionFail,
	OnParse:      ActionSkip,
}

// ClassifyPolicy governs classification batches: provider/transport
// failures are retried with backoff, a parse failure on an otherwise
// successful response degrades to an empty result without retry.
var ClassifyPolicy = Policy{
	OnRateLimit:  ActionRetry,
	OnTransport:  ActionRetry,
	OnValidation: ActionFail,
	OnParse:      ActionSkip,
}

// Classify buckets err into a failure tier and returns the policy's action.
func (p Policy) Classify(err error) Action {
	switch {
	case errors.Is(err, ErrRateLimited):
		return p.OnRateLimit
	case IsValidation(err):
		return p.OnValidation
	case errors.Is(err, ErrMalformedResponse):
		return p.OnParse
	default:
		return p.OnTransport
	}
}
