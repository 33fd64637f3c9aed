package model

// ValidationResult is the outcome of validating one process instance.
// An absent process instance id is the empty string; Messages is never nil
// once decoded.
type ValidationResult struct {
	ProcessInstanceID string
	Messages          []string
}

// IsEmpty reports whether the result carries neither an instance id nor messages.
func (r ValidationResult) IsEmpty() bool {
	return r.ProcessInstanceID == "" && len(r.Messages) == 0
}

// ValidationReport is the answer to a validation result query.
//
// Ready is false while the batch has not completed; Results is then nil.
// A ready report always has a non-nil Results slice, possibly empty.
type ValidationReport struct {
	BatchID string
	Ready   bool
	Results []ValidationResult
}

// NewNotReadyReport returns the report of a batch that has not completed yet.
func NewNotReadyReport(batchID string) ValidationReport {
	return ValidationReport{BatchID: batchID}
}

// NewReadyReport returns the report of a completed batch.
func NewReadyReport(batchID string, results []ValidationResult) ValidationReport {
	if results == nil {
		results = []ValidationResult{}
	}
	return ValidationReport{BatchID: batchID, Ready: true, Results: results}
}
