// Package serialization converts engine values to and from their persisted
// JSON form: validation result payloads and migration documents.
package serialization

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
)

const module = "serialization"

// Field names of the validation result payload.
const (
	FieldProcessInstanceID  = "processInstanceId"
	FieldValidationMessages = "validationMessages"
)

// validationPayload is the persisted schema of a ValidationResult.
// Both fields are optional; a null id is treated as absent.
type validationPayload struct {
	ProcessInstanceID  *string  `json:"processInstanceId,omitempty"`
	ValidationMessages []string `json:"validationMessages,omitempty"`
}

// EncodeValidationResult serializes r into its payload form.
func EncodeValidationResult(r model.ValidationResult) (string, error) {
	p := validationPayload{ValidationMessages: r.Messages}
	if r.ProcessInstanceID != "" {
		id := r.ProcessInstanceID
		p.ProcessInstanceID = &id
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", exception.NewEngineError(module, exception.KindInternal, "Failed to serialize validation result", err, false)
	}
	return string(data), nil
}

// DecodeValidationResult parses a payload into a ValidationResult.
//
// The payload must be a single JSON object whose known fields have the
// expected types; anything else yields a KindDecode error. The returned
// Messages slice is never nil. Callers decide what to do with an empty result.
func DecodeValidationResult(payload string) (model.ValidationResult, error) {
	trimmed := bytes.TrimSpace([]byte(payload))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return model.ValidationResult{}, exception.NewDecodeError(module, "validation payload is not a JSON object", nil)
	}

	var p validationPayload
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if err := dec.Decode(&p); err != nil {
		return model.ValidationResult{}, exception.NewDecodeError(module, "malformed validation payload", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return model.ValidationResult{}, exception.NewDecodeError(module, "trailing data after validation payload", err)
	}

	r := model.ValidationResult{Messages: []string{}}
	if p.ProcessInstanceID != nil {
		r.ProcessInstanceID = *p.ProcessInstanceID
	}
	if p.ValidationMessages != nil {
		r.Messages = p.ValidationMessages
	}
	return r, nil
}

// MarshalMigrationDocument serializes a migration document.
func MarshalMigrationDocument(doc model.MigrationDocument) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", exception.NewEngineError(module, exception.KindInternal, "Failed to serialize migration document", err, false)
	}
	return string(data), nil
}

// UnmarshalMigrationDocument parses a migration document. An empty string
// yields the zero document.
func UnmarshalMigrationDocument(data string) (model.MigrationDocument, error) {
	var doc model.MigrationDocument
	if data == "" {
		return doc, nil
	}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return doc, exception.NewDecodeError(module, "malformed migration document", err)
	}
	return doc, nil
}
