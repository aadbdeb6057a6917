package handler

import (
	"context"

	"github.com/mcoot/arenasession/internal/services/lifecycle"
	"github.com/mcoot/arenasession/internal/services/phase"
)

// Runner executes fn on the authority loop and waits for it
type Runner interface {
	Call(ctx context.Context, fn func()) error
}

// spawner is a phase that owns avatars
type spawner interface {
	Lifecycle() *lifecycle.Manager
}

// phaseName returns the active phase for JSON, or nil when none is active
func phaseName(phases *phase.Registry) *string {
	p, ok := phases.Active()
	if !ok {
		return nil
	}
	s := string(p)
	return &s
}
