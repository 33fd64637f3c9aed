package test

import (
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/serialization"
)

// NewTestParentBatch creates a parent batch with n CREATED children. The
// parent lists the children's ids in order.
func NewTestParentBatch(n int) (*model.Batch, []*model.Batch) {
	parent := model.NewBatch(model.BatchTypeMigrationValidation)
	parent.SearchKey = "source:1"
	parent.SearchKey2 = "target:2"
	children := make([]*model.Batch, 0, n)
	for i := 0; i < n; i++ {
		child := model.NewChildBatch(parent, i)
		parent.Children = append(parent.Children, child.ID)
		children = append(children, child)
	}
	return parent, children
}

// ResultPayload encodes a validation result, panicking on failure.
func ResultPayload(processInstanceID string, messages ...string) *string {
	s, err := serialization.EncodeValidationResult(model.ValidationResult{
		ProcessInstanceID: processInstanceID,
		Messages:          messages,
	})
	if err != nil {
		panic(err)
	}
	return &s
}
