package migration

import (
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/serialization"
)

// AggregateValidationResults merges the results of a completed batch.
//
// The batch's own payload comes first, then the payload of each child in the
// order of batch.Children. Children missing from children or without a payload
// are skipped. A payload that cannot be decoded, or decodes to an empty
// result, is dropped with a warning. The returned slice is never nil.
func AggregateValidationResults(batch *model.Batch, children []*model.Batch) []model.ValidationResult {
	results := make([]model.ValidationResult, 0, len(batch.Children)+1)

	if r, ok := decodeEntry(batch); ok {
		results = append(results, r)
	}

	byID := make(map[string]*model.Batch, len(children))
	for _, child := range children {
		byID[child.ID] = child
	}
	for _, childID := range batch.Children {
		child, found := byID[childID]
		if !found {
			logger.Warnf("Child batch %s of batch %s is missing; skipping.", childID, batch.ID)
			continue
		}
		if r, ok := decodeEntry(child); ok {
			results = append(results, r)
		}
	}
	return results
}

func decodeEntry(b *model.Batch) (model.ValidationResult, bool) {
	if !b.HasResultPayload() {
		return model.ValidationResult{}, false
	}
	r, err := serialization.DecodeValidationResult(*b.ResultPayload)
	if err != nil {
		logger.Warnf("Dropping undecodable result payload of batch %s: %v", b.ID, err)
		return model.ValidationResult{}, false
	}
	if r.IsEmpty() {
		logger.Debugf("Dropping empty result payload of batch %s.", b.ID)
		return model.ValidationResult{}, false
	}
	return r, true
}
