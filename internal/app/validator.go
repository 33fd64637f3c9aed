package app

import (
	"context"
	"fmt"
	"strings"

	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/core/migration"
)

// StaleInstancePrefix marks demo instances whose state cannot be mapped onto
// the target definition.
const StaleInstancePrefix = "stale-"

// CatalogValidator validates migrations against the definitions in a Catalog.
type CatalogValidator struct {
	catalog *Catalog
}

func NewCatalogValidator(catalog *Catalog) *CatalogValidator {
	return &CatalogValidator{catalog: catalog}
}

// ValidateDefinitions checks that both definitions exist, are of the same kind
// and that the target still starts every process model the source starts.
func (v *CatalogValidator) ValidateDefinitions(ctx context.Context, doc model.MigrationDocument) ([]string, error) {
	var messages []string

	source, ok := v.catalog.Get(doc.SourceDefinitionID)
	if !ok {
		messages = append(messages, fmt.Sprintf("Source definition %s not found", doc.SourceDefinitionID))
	}
	target, found := v.catalog.ResolveTarget(doc)
	if !found {
		messages = append(messages, fmt.Sprintf("Target definition %s not found", doc.Target()))
	}
	if len(messages) > 0 {
		return messages, nil
	}

	if source.Kind != target.Kind {
		messages = append(messages, fmt.Sprintf("Cannot migrate a %s definition to a %s definition", source.Kind, target.Kind))
	}

	targetKeys := make(map[string]bool)
	for _, id := range v.catalog.Links(target.ID) {
		if d, ok := v.catalog.Get(id); ok {
			targetKeys[d.Key] = true
		}
	}
	for _, id := range v.catalog.Links(source.ID) {
		d, ok := v.catalog.Get(id)
		if ok && !targetKeys[d.Key] {
			messages = append(messages, fmt.Sprintf("Process model %s started by the source is not started by the target", d.Key))
		}
	}
	return messages, nil
}

// ValidateInstance reports instances the target definition cannot take over.
func (v *CatalogValidator) ValidateInstance(ctx context.Context, doc model.MigrationDocument, instanceID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.HasPrefix(instanceID, StaleInstancePrefix) {
		return []string{fmt.Sprintf("Instance %s has active elements not present in %s", instanceID, doc.Target())}, nil
	}
	return nil, nil
}

var _ migration.Validator = (*CatalogValidator)(nil)
