package serialization_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/serialization"
)

func TestEncodeValidationResult(t *testing.T) {
	payload, err := serialization.EncodeValidationResult(model.ValidationResult{ProcessInstanceID: "pi-1", Messages: []string{"m1"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"processInstanceId":"pi-1","validationMessages":["m1"]}`, payload)

	// An absent id and no messages encode to the empty object.
	payload, err = serialization.EncodeValidationResult(model.ValidationResult{})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, payload)
}

func TestDecodeValidationResult(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantID   string
		wantMsgs []string
	}{
		{"full", `{"processInstanceId":"pi-1","validationMessages":["m1","m2"]}`, "pi-1", []string{"m1", "m2"}},
		{"messages only", `{"validationMessages":["m1"]}`, "", []string{"m1"}},
		{"null id", `{"processInstanceId":null,"validationMessages":["m1"]}`, "", []string{"m1"}},
		{"id only", `{"processInstanceId":"pi-2"}`, "pi-2", []string{}},
		{"empty object", ` {} `, "", []string{}},
		{"unknown fields ignored", `{"processInstanceId":"pi-3","extra":42}`, "pi-3", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := serialization.DecodeValidationResult(tt.payload)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, r.ProcessInstanceID)
			assert.NotNil(t, r.Messages)
			assert.Equal(t, tt.wantMsgs, r.Messages)
		})
	}
}

func TestDecodeValidationResult_Malformed(t *testing.T) {
	for _, payload := range []string{
		"",
		"not json",
		`["m1"]`,
		`"text"`,
		`{"processInstanceId":`,
		`{"validationMessages":"m1"}`,
		`{"processInstanceId":7}`,
		`{} {}`,
	} {
		_, err := serialization.DecodeValidationResult(payload)
		assert.Error(t, err, "payload %q", payload)
		assert.True(t, exception.IsKind(err, exception.KindDecode), "payload %q", payload)
	}
}

func TestMigrationDocument(t *testing.T) {
	doc := model.MigrationDocument{SourceDefinitionID: "claim-process:1", TargetDefinitionKey: "claim-process", TargetVersion: 2}
	data, err := serialization.MarshalMigrationDocument(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"sourceDefinitionId":"claim-process:1","targetDefinitionKey":"claim-process","targetVersion":2}`, data)

	empty, err := serialization.UnmarshalMigrationDocument("")
	require.NoError(t, err)
	assert.Equal(t, model.MigrationDocument{}, empty)

	_, err = serialization.UnmarshalMigrationDocument("{")
	assert.True(t, exception.IsKind(err, exception.KindDecode))
}
