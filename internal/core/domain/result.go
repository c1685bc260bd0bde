package domain

import "encoding/json"

// Result is the data/errors pair produced for an Operation.
//
// Errors hold raw protocol errors (*gqlerror.Error) when produced by a
// transport, and *ClassifiedError once the result has passed the classifier.
type Result struct {
	Data   json.RawMessage
	Errors []error
}

// FirstError returns the first error of the result, or nil.
func (r *Result) FirstError() error {
	if r == nil || len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// HasErrors reports whether the result carries at least one error.
func (r *Result) HasErrors() bool {
	return r != nil && len(r.Errors) > 0
}

// ErrorResult builds a data-less Result holding a single error.
func ErrorResult(err error) *Result {
	return &Result{Errors: []error{err}}
}
