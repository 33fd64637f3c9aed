package app

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/caseflow/pkg/engine/component/modelimport"
	model "github.com/tigerroll/caseflow/pkg/engine/core/domain/model"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/exception"
	"github.com/tigerroll/caseflow/pkg/engine/support/util/logger"
)

// DefinitionsYAML holds the raw bytes of the deployed definitions file.
type DefinitionsYAML []byte

// Definition is a deployed process or case definition known to the application.
type Definition struct {
	Kind    modelimport.ModelKind `yaml:"kind"`
	Key     string                `yaml:"key"`
	ID      string                `yaml:"id"`
	OldID   string                `yaml:"old_id"`
	Version int                   `yaml:"version"`
	Name    string                `yaml:"name"`
	// ProcessRefs are the keys of process models a case model starts.
	ProcessRefs []string `yaml:"process_refs"`
}

type definitionsFile struct {
	Definitions []Definition `yaml:"definitions"`
}

// Catalog is a read-mostly registry of deployed definitions. Cross-model
// references are resolved at import time, so a definition may reference a
// process model listed after it.
type Catalog struct {
	mu    sync.RWMutex
	byID  map[string]Definition
	byKey map[string][]Definition // ascending version
	links map[string][]string     // definition id -> referenced definition ids
}

func NewCatalog() *Catalog {
	return &Catalog{
		byID:  make(map[string]Definition),
		byKey: make(map[string][]Definition),
		links: make(map[string][]string),
	}
}

// LoadCatalog parses data and imports its definitions.
func LoadCatalog(data DefinitionsYAML) (*Catalog, error) {
	c := NewCatalog()
	if len(data) == 0 {
		return c, nil
	}
	var file definitionsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, exception.NewEngineError("Catalog", exception.KindInvalidArgument, "failed to parse definitions", err, false)
	}
	if err := c.Import(file.Definitions); err != nil {
		return nil, err
	}
	return c, nil
}

// Import registers defs. References are resolved in two phases: a reference to
// a model that is not registered yet stays pending until it is. Import fails if
// any reference is still pending at the end.
func (c *Catalog) Import(defs []Definition) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	resolver := modelimport.NewReferenceResolver(func(referrer string, ref modelimport.ModelRef) error {
		c.links[referrer] = append(c.links[referrer], ref.ID)
		return nil
	})

	var result *multierror.Error
	for _, def := range defs {
		if def.ID == "" {
			if def.Version <= 0 {
				def.Version = 1
			}
			def.ID = fmt.Sprintf("%s:%d", def.Key, def.Version)
		}
		for _, key := range def.ProcessRefs {
			if _, err := resolver.Reference(modelimport.KindProcess, key, def.ID); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if err := resolver.Register(def.Kind, def.Key, def.ID, def.OldID); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		c.byID[def.ID] = def
		versions := append(c.byKey[def.Key], def)
		sort.SliceStable(versions, func(i, j int) bool { return versions[i].Version < versions[j].Version })
		c.byKey[def.Key] = versions
		logger.Debugf("Catalog: registered %s definition %s (key=%s, version=%d).", def.Kind, def.ID, def.Key, def.Version)
	}

	if missing := resolver.Unresolved(modelimport.KindProcess); len(missing) > 0 {
		result = multierror.Append(result, exception.NewInvalidArgumentError("Catalog",
			"unresolved process references: "+strings.Join(missing, ", ")))
	}
	return result.ErrorOrNil()
}

// Get returns the definition with the given id.
func (c *Catalog) Get(id string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.byID[id]
	return d, ok
}

// Latest returns the highest version deployed under key.
func (c *Catalog) Latest(key string) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	versions := c.byKey[key]
	if len(versions) == 0 {
		return Definition{}, false
	}
	return versions[len(versions)-1], true
}

// Version returns version v of key.
func (c *Catalog) Version(key string, v int) (Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.byKey[key] {
		if d.Version == v {
			return d, true
		}
	}
	return Definition{}, false
}

// Links returns the ids of the definitions referenced by id.
func (c *Catalog) Links(id string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.links[id]...)
}

// ResolveTarget finds the target definition of doc by id, or by key and
// optional version.
func (c *Catalog) ResolveTarget(doc model.MigrationDocument) (Definition, bool) {
	if doc.TargetDefinitionID != "" {
		return c.Get(doc.TargetDefinitionID)
	}
	if doc.TargetVersion > 0 {
		return c.Version(doc.TargetDefinitionKey, doc.TargetVersion)
	}
	return c.Latest(doc.TargetDefinitionKey)
}
