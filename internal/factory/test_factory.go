package factory

import (
	"context"
	"time"

	"github.com/mcoot/arenasession/internal/config"
	"github.com/mcoot/arenasession/internal/dependencies/mocks"
	"github.com/mcoot/arenasession/internal/storage/memory"
	"github.com/mcoot/arenasession/internal/testutil"
)

// TestApp extends App with test-specific helpers
type TestApp struct {
	*App

	// Mocks for test control
	MockClock  *mocks.MockClock
	MockRandom *mocks.MockRandom
}

// NewTestApp creates an App configured for testing with mocked dependencies
func NewTestApp() *TestApp {
	store := memory.New()
	mockClock := mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	mockRandom := mocks.NewMockRandom()

	app, err := newWithDependencies(store, mockClock, mockRandom, config.Defaults(), testutil.NopLogger())
	if err != nil {
		panic(err)
	}

	return &TestApp{
		App:        app,
		MockClock:  mockClock,
		MockRandom: mockRandom,
	}
}

// Settle waits until the authority loop has run everything posted so far,
// including tasks those tasks post
func (t *TestApp) Settle(ctx context.Context) error {
	for {
		pending := 0
		if err := t.Loop.Call(ctx, func() { pending = t.Loop.Pending() }); err != nil {
			return err
		}
		if pending == 0 {
			return nil
		}
	}
}

// Advance moves the mock clock and runs whatever the due timers posted
func (t *TestApp) Advance(ctx context.Context, d time.Duration) error {
	t.MockClock.Advance(d)
	return t.Settle(ctx)
}
