package model

import "time"

// CaseInstanceState is the runtime state of a case instance.
type CaseInstanceState string

const (
	CaseInstanceStateActive     CaseInstanceState = "active"
	CaseInstanceStateCompleted  CaseInstanceState = "completed"
	CaseInstanceStateTerminated CaseInstanceState = "terminated"
)

// CaseInstance is the handle of a started case instance.
type CaseInstance struct {
	ID                string
	CaseDefinitionID  string
	CaseDefinitionKey string
	BusinessKey       string
	Name              string
	TenantID          string
	State             CaseInstanceState
	StartTime         time.Time
	Variables         map[string]interface{}
}
