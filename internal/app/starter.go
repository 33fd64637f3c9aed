package app

import (
	"context"
	"time"

	"github.com/tigerroll/caseflow/pkg/engine/component/modelimport"
	"github.com/tigerroll/caseflow/pkg/engine/core/caseinstance"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// CatalogStarter starts case instances of definitions deployed in a Catalog.
// Instances only exist in the returned handle; plan item execution is out of scope.
type CatalogStarter struct {
	catalog *Catalog
}

func NewCatalogStarter(catalog *Catalog) *CatalogStarter {
	return &CatalogStarter{catalog: catalog}
}

func (s *CatalogStarter) Start(ctx context.Context, b *caseinstance.Builder) (*model.CaseInstance, error) {
	var (
		def Definition
		ok  bool
	)
	if id := b.GetCaseDefinitionID(); id != "" {
		def, ok = s.catalog.Get(id)
	} else {
		def, ok = s.catalog.Latest(b.GetCaseDefinitionKey())
	}
	if !ok {
		return nil, exception.NewNotFoundError("CatalogStarter", "case definition not found", nil)
	}
	if def.Kind != modelimport.KindCase {
		return nil, exception.NewInvalidArgumentError("CatalogStarter", "definition "+def.ID+" is not a case definition")
	}

	inst := &model.CaseInstance{
		ID:                model.NewID(),
		CaseDefinitionID:  def.ID,
		CaseDefinitionKey: def.Key,
		BusinessKey:       b.GetBusinessKey(),
		Name:              b.GetName(),
		TenantID:          b.GetTenantID(),
		State:             model.CaseInstanceStateActive,
		StartTime:         time.Now(),
		Variables:         b.GetVariables(),
	}
	logger.Infof("Started case instance %s of %s.", inst.ID, def.ID)
	return inst, nil
}

var _ caseinstance.Starter = (*CatalogStarter)(nil)
