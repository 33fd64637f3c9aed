// Package model defines the domain entities of the caseflow engine:
// batches and their validation results, and started case instances.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BatchTypeMigrationValidation is the discriminator of parent and child
// batches created by a migration validation run.
const BatchTypeMigrationValidation = "migration-validation"

// BatchStatus is the lifecycle state of a Batch.
type BatchStatus string

const (
	BatchStatusCreated    BatchStatus = "CREATED"
	BatchStatusInProgress BatchStatus = "IN_PROGRESS"
	BatchStatusCompleted  BatchStatus = "COMPLETED"
	BatchStatusFailed     BatchStatus = "FAILED"
)

// String returns the string representation of the status.
func (s BatchStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible.
func (s BatchStatus) IsTerminal() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// IsValid reports whether s is one of the known statuses.
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusCreated, BatchStatusInProgress, BatchStatusCompleted, BatchStatusFailed:
		return true
	}
	return false
}

// Batch is one migration/validation run, or one per-instance part of a run.
//
// A parent batch lists its children in Children; the list is fixed when the
// parent is created. A child carries ParentID and its position in ChildOrder.
type Batch struct {
	ID         string
	Type       string
	Status     BatchStatus
	ParentID   string // empty for a root batch
	ChildOrder int
	Children   []string

	// SearchKey holds the source definition id, SearchKey2 the target definition
	// id (parents) or the process instance id (children).
	SearchKey  string
	SearchKey2 string

	// Document is the serialized migration document of a parent batch.
	Document string
	// ResultPayload is the serialized ValidationResult computed by this batch itself.
	ResultPayload *string

	CreateTime   time.Time
	CompleteTime *time.Time
	LastUpdated  time.Time
	Version      int
}

// NewID returns a new random identifier.
func NewID() string {
	return uuid.New().String()
}

// NewBatch creates a root batch in CREATED status.
func NewBatch(batchType string) *Batch {
	now := time.Now()
	return &Batch{
		ID:          NewID(),
		Type:        batchType,
		Status:      BatchStatusCreated,
		Children:    []string{},
		CreateTime:  now,
		LastUpdated: now,
	}
}

// NewChildBatch creates a CREATED child of parent at the given position.
// The caller is responsible for listing the returned id in parent.Children.
func NewChildBatch(parent *Batch, order int) *Batch {
	child := NewBatch(parent.Type)
	child.ParentID = parent.ID
	child.ChildOrder = order
	child.SearchKey = parent.SearchKey
	return child
}

// IsRoot reports whether the batch has no parent.
func (b *Batch) IsRoot() bool {
	return b.ParentID == ""
}

// HasResultPayload reports whether the batch carries its own result.
func (b *Batch) HasResultPayload() bool {
	return b.ResultPayload != nil
}

// MarkInProgress moves a CREATED batch to IN_PROGRESS.
// It is a no-op for a batch that is already IN_PROGRESS.
func (b *Batch) MarkInProgress() error {
	switch b.Status {
	case BatchStatusInProgress:
		return nil
	case BatchStatusCreated:
		b.Status = BatchStatusInProgress
		b.LastUpdated = time.Now()
		return nil
	}
	return fmt.Errorf("batch %s: cannot move from %s to %s", b.ID, b.Status, BatchStatusInProgress)
}

// Complete moves the batch to COMPLETED, storing payload (which may be nil).
func (b *Batch) Complete(payload *string) error {
	return b.finish(BatchStatusCompleted, payload)
}

// Fail moves the batch to FAILED with a diagnostic payload.
func (b *Batch) Fail(payload *string) error {
	return b.finish(BatchStatusFailed, payload)
}

func (b *Batch) finish(status BatchStatus, payload *string) error {
	if b.Status.IsTerminal() {
		return fmt.Errorf("batch %s: cannot move from %s to %s", b.ID, b.Status, status)
	}
	now := time.Now()
	b.Status = status
	b.ResultPayload = payload
	b.CompleteTime = &now
	b.LastUpdated = now
	return nil
}

// Clone returns a deep copy of the batch.
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	c := *b
	c.Children = append([]string(nil), b.Children...)
	if b.ResultPayload != nil {
		p := *b.ResultPayload
		c.ResultPayload = &p
	}
	if b.CompleteTime != nil {
		t := *b.CompleteTime
		c.CompleteTime = &t
	}
	return &c
}

// StringPtr returns a pointer to s. Convenience for building payloads.
func StringPtr(s string) *string {
	return &s
}

// MigrationDocument describes what a migration validation run checks:
// instances of SourceDefinitionID against TargetDefinitionID.
type MigrationDocument struct {
	SourceDefinitionID  string `json:"sourceDefinitionId"`
	TargetDefinitionID  string `json:"targetDefinitionId,omitempty"`
	TargetDefinitionKey string `json:"targetDefinitionKey,omitempty"`
	TargetVersion       int    `json:"targetVersion,omitempty"`
	TenantID            string `json:"tenantId,omitempty"`
}

// Target returns the best identifier of the target definition for display and search.
func (d MigrationDocument) Target() string {
	if d.TargetDefinitionID != "" {
		return d.TargetDefinitionID
	}
	if d.TargetVersion > 0 {
		return fmt.Sprintf("%s:%d", d.TargetDefinitionKey, d.TargetVersion)
	}
	return d.TargetDefinitionKey
}
