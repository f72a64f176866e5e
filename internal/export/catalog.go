// Package export turns per-campaign message statistics into flat tabular
// rows and writes them as CSV.
package export

import (
	"encoding/json"

	"github.com/that-one-tom/crossengage-ops/internal/crossengage"
)

// Catalog is an indexed view of the KPI definitions, built once per run.
// Lookup is O(1) and ids shared by more than one definition are detected at
// build time instead of at every resolution.
type Catalog struct {
	byID      map[string]crossengage.KPIDefinition
	ambiguous map[string]bool
}

// NewCatalog indexes the given KPI definitions by id.
func NewCatalog(defs []crossengage.KPIDefinition) *Catalog {
	c := &Catalog{
		byID:      make(map[string]crossengage.KPIDefinition, len(defs)),
		ambiguous: make(map[string]bool),
	}
	for _, def := range defs {
		id := def.ID.String()
		if _, exists := c.byID[id]; exists {
			c.ambiguous[id] = true
			continue
		}
		c.byID[id] = def
	}
	return c
}

// Lookup returns the definition for an id, or false when the id is unknown
// or shared by more than one definition.
func (c *Catalog) Lookup(id string) (crossengage.KPIDefinition, bool) {
	if c.ambiguous[id] {
		return crossengage.KPIDefinition{}, false
	}
	def, ok := c.byID[id]
	return def, ok
}

// ResolveAndFilter maps a raw id→value map to a name→value map, keeping only
// names on the allow-list. Values with unknown or ambiguous ids are dropped
// silently: such KPIs are never exported.
func (c *Catalog) ResolveAndFilter(values map[string]json.Number, allowList []string) map[string]json.Number {
	allowed := make(map[string]bool, len(allowList))
	for _, name := range allowList {
		allowed[name] = true
	}

	resolved := make(map[string]json.Number)
	for id, value := range values {
		def, ok := c.Lookup(id)
		if !ok {
			continue
		}
		if !allowed[def.Name] {
			continue
		}
		resolved[def.Name] = value
	}
	return resolved
}
