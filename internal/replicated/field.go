// Package replicated implements single-writer values mirrored to every
// participant with change notification.
package replicated

import (
	"fmt"
	"sync"

	"github.com/mcoot/arenasession/internal/eventbus"
	"github.com/mcoot/arenasession/internal/model"
)

// Permission declares who may write a field
type Permission int

const (
	// ServerWrite fields are written only by the hosting process
	ServerWrite Permission = iota
	// OwnerWrite fields are written only by the owning client
	OwnerWrite
)

func (p Permission) String() string {
	if p == OwnerWrite {
		return "owner"
	}
	return "server"
}

// Change describes one committed write
type Change[T any] struct {
	Field    string
	Previous T
	Current  T
}

// Sink receives committed values for delivery to remote mirrors
type Sink interface {
	Replicate(field string, owner model.ClientID, value any)
}

// Retractor is a Sink that can also drop a field from remote mirrors
type Retractor interface {
	Retract(field string, owner model.ClientID)
}

// SinkFunc adapts a function to Sink
type SinkFunc func(field string, owner model.ClientID, value any)

func (f SinkFunc) Replicate(field string, owner model.ClientID, value any) {
	f(field, owner, value)
}

// Field holds a value with exactly one authority
type Field[T comparable] struct {
	mu      sync.RWMutex
	name    string
	perm    Permission
	owner   model.ClientID
	value   T
	sink    Sink
	changed *eventbus.Channel[Change[T]]
}

// NewField creates a field. owner only matters for OwnerWrite fields.
func NewField[T comparable](name string, initial T, perm Permission, owner model.ClientID) *Field[T] {
	return &Field[T]{
		name:    name,
		perm:    perm,
		owner:   owner,
		value:   initial,
		changed: eventbus.NewChannel[Change[T]](),
	}
}

// Name returns the replication key
func (f *Field[T]) Name() string { return f.name }

// Value returns the current value
func (f *Field[T]) Value() T {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.value
}

// Owner returns the owning client
func (f *Field[T]) Owner() model.ClientID {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.owner
}

// SetOwner reassigns ownership; only the server may do this
func (f *Field[T]) SetOwner(writer, owner model.ClientID) error {
	if writer != model.ServerClientID {
		return fmt.Errorf("%s: reassign owner: %w", f.name, model.ErrNotAuthority)
	}
	f.mu.Lock()
	f.owner = owner
	f.mu.Unlock()
	return nil
}

// SetSink attaches the replication sink
func (f *Field[T]) SetSink(s Sink) {
	f.mu.Lock()
	f.sink = s
	f.mu.Unlock()
}

// CanWrite reports whether writer is this field's authority
func (f *Field[T]) CanWrite(writer model.ClientID) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.perm == OwnerWrite {
		return writer == f.owner
	}
	return writer == model.ServerClientID
}

// Set writes v on behalf of writer. Unchanged values do not notify.
func (f *Field[T]) Set(writer model.ClientID, v T) error {
	if !f.CanWrite(writer) {
		return fmt.Errorf("%s: client %d is not the %s authority: %w", f.name, writer, f.perm, model.ErrNotAuthority)
	}
	f.commit(v, true)
	return nil
}

// ApplyRemote stores a value received from the authority on a mirror
func (f *Field[T]) ApplyRemote(v T) {
	f.commit(v, false)
}

func (f *Field[T]) commit(v T, replicate bool) {
	f.mu.Lock()
	prev := f.value
	if prev == v {
		f.mu.Unlock()
		return
	}
	f.value = v
	sink := f.sink
	owner := f.owner
	f.mu.Unlock()

	f.changed.Publish(Change[T]{Field: f.name, Previous: prev, Current: v})
	if replicate && sink != nil {
		sink.Replicate(f.name, owner, v)
	}
}

// OnChanged subscribes to committed changes
func (f *Field[T]) OnChanged(handler func(Change[T])) *eventbus.Subscription {
	return f.changed.Subscribe(handler)
}

// Close drops all change subscribers
func (f *Field[T]) Close() {
	f.changed.Dispose()
}

// Retract closes the field and removes it from remote mirrors when the sink
// supports that. Use when the owning object goes away.
func (f *Field[T]) Retract() {
	f.mu.RLock()
	sink, owner := f.sink, f.owner
	f.mu.RUnlock()

	f.Close()
	if r, ok := sink.(Retractor); ok {
		r.Retract(f.name, owner)
	}
}
