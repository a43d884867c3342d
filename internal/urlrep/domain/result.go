package domain

// ValidationResult is the verdict for one URL. Exactly one of these holds:
// ContinueProcessing is true and Violation is nil, or ContinueProcessing is
// false and Violation is set.
type ValidationResult struct {
	ContinueProcessing bool       `json:"continue_processing"`
	Violation          *Violation `json:"violation,omitempty"`
}

// Allow returns a result that lets the fetch proceed.
func Allow() ValidationResult { return ValidationResult{ContinueProcessing: true} }

// Block returns a result that aborts the fetch with v.
func Block(v *Violation) ValidationResult {
	return ValidationResult{ContinueProcessing: false, Violation: v}
}

// IsBlocked reports whether the fetch must be aborted.
func (r ValidationResult) IsBlocked() bool { return !r.ContinueProcessing }

// Code returns the violation code, or zero when the result allows the fetch.
func (r ValidationResult) Code() Code {
	if r.Violation == nil {
		return 0
	}
	return r.Violation.Code
}
