package avatar

import (
	"sync"
	"sync/atomic"

	"github.com/mcoot/arenasession/internal/model"
)

// Graphics is an instantiated visual for one avatar
type Graphics interface {
	Ref() string
	Destroy()
}

// GraphicsFactory instantiates visuals. Rendering lives outside this module.
type GraphicsFactory interface {
	Instantiate(a Appearance) (Graphics, error)
}

// Binding ties an avatar to its appearance and caches the graphics for it
type Binding struct {
	owner      model.ClientID
	appearance Appearance
	factory    GraphicsFactory

	mu       sync.Mutex
	graphics Graphics
	dead     bool
}

// NewBinding creates a binding; nothing is instantiated until Graphics
func NewBinding(owner model.ClientID, appearance Appearance, factory GraphicsFactory) *Binding {
	return &Binding{owner: owner, appearance: appearance, factory: factory}
}

// Owner returns the client owning the avatar
func (b *Binding) Owner() model.ClientID { return b.owner }

// Appearance returns the bound appearance
func (b *Binding) Appearance() Appearance { return b.appearance }

// Graphics instantiates the visual on first use and returns the cached one after
func (b *Binding) Graphics() (Graphics, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.dead {
		return nil, model.ErrStaleReference
	}
	if b.graphics != nil {
		return b.graphics, nil
	}
	g, err := b.factory.Instantiate(b.appearance)
	if err != nil {
		return nil, err
	}
	b.graphics = g
	return g, nil
}

// Destroy releases the graphics, if any were created
func (b *Binding) Destroy() {
	b.mu.Lock()
	g := b.graphics
	b.graphics = nil
	b.dead = true
	b.mu.Unlock()

	if g != nil {
		g.Destroy()
	}
}

// HeadlessFactory stands in for a renderer on a dedicated server. It only
// counts instances.
type HeadlessFactory struct {
	created atomic.Int64
	live    atomic.Int64
}

// Ensure HeadlessFactory implements GraphicsFactory
var _ GraphicsFactory = (*HeadlessFactory)(nil)

func (f *HeadlessFactory) Instantiate(a Appearance) (Graphics, error) {
	f.created.Add(1)
	f.live.Add(1)
	return &headlessGraphics{ref: a.GraphicsRef, factory: f}, nil
}

// Created returns how many graphics were ever instantiated
func (f *HeadlessFactory) Created() int64 { return f.created.Load() }

// Live returns how many graphics have not been destroyed
func (f *HeadlessFactory) Live() int64 { return f.live.Load() }

type headlessGraphics struct {
	ref     string
	factory *HeadlessFactory
	once    sync.Once
}

func (g *headlessGraphics) Ref() string { return g.ref }

func (g *headlessGraphics) Destroy() {
	g.once.Do(func() { g.factory.live.Add(-1) })
}
