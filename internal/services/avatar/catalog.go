// Package avatar holds the catalog of selectable appearances and the
// per-avatar graphics bindings.
package avatar

import (
	"fmt"

	"github.com/mcoot/arenasession/internal/dependencies/random"
	"github.com/mcoot/arenasession/internal/model"
)

// Appearance is one selectable look
type Appearance struct {
	ID          model.AppearanceID `json:"id" yaml:"id"`
	Name        string             `json:"name" yaml:"name"`
	GraphicsRef string             `json:"graphics_ref" yaml:"graphics_ref"`
}

// Catalog is the fixed set of appearances available this session
type Catalog struct {
	items  []Appearance
	byID   map[model.AppearanceID]int
	random random.Random
}

// NewCatalog validates and indexes appearances
func NewCatalog(appearances []Appearance, rnd random.Random) (*Catalog, error) {
	if len(appearances) == 0 {
		return nil, &model.ConfigurationError{What: "avatar catalog is empty"}
	}

	c := &Catalog{
		items:  make([]Appearance, len(appearances)),
		byID:   make(map[model.AppearanceID]int, len(appearances)),
		random: rnd,
	}
	copy(c.items, appearances)

	for i, a := range c.items {
		if a.ID.IsNil() {
			return nil, &model.ConfigurationError{What: fmt.Sprintf("appearance %q has no id", a.Name)}
		}
		if prev, dup := c.byID[a.ID]; dup {
			return nil, &model.ConfigurationError{
				What: fmt.Sprintf("appearance id %s used by both %q and %q", a.ID, c.items[prev].Name, a.Name),
			}
		}
		c.byID[a.ID] = i
	}
	return c, nil
}

// TryGet looks up an appearance by id
func (c *Catalog) TryGet(id model.AppearanceID) (Appearance, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Appearance{}, false
	}
	return c.items[i], true
}

// Random picks any appearance
func (c *Catalog) Random() Appearance {
	return c.items[c.random.Intn(len(c.items))]
}

// All returns every appearance in catalog order
func (c *Catalog) All() []Appearance {
	out := make([]Appearance, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of appearances
func (c *Catalog) Len() int { return len(c.items) }
