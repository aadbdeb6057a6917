package authority

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/dependencies/mocks"
	"github.com/mcoot/arenasession/internal/testutil"
)

type AuthoritySuite struct {
	suite.Suite
	clock     *mocks.MockClock
	loop      *Loop
	scheduler *Scheduler
}

func TestAuthoritySuite(t *testing.T) {
	suite.Run(t, new(AuthoritySuite))
}

func (s *AuthoritySuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.loop = NewLoop(testutil.NopLogger())
	s.scheduler = NewScheduler(s.clock, s.loop)
}

func (s *AuthoritySuite) TestDrainRunsTasksInOrderIncludingNestedPosts() {
	var order []int
	s.loop.Post(func() {
		order = append(order, 1)
		s.loop.Post(func() { order = append(order, 3) })
	})
	s.loop.Post(func() { order = append(order, 2) })

	s.loop.Drain()

	s.Equal([]int{1, 2, 3}, order)
	s.Equal(0, s.loop.Pending())
}

func (s *AuthoritySuite) TestPanickingTaskDoesNotStopTheLoop() {
	ran := false
	s.loop.Post(func() { panic("boom") })
	s.loop.Post(func() { ran = true })

	s.loop.Drain()

	s.True(ran)
}

func (s *AuthoritySuite) TestCallWaitsForRunningLoop() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.loop.Run(ctx)

	value := 0
	err := s.loop.Call(ctx, func() { value = 42 })

	s.Require().NoError(err)
	s.Equal(42, value)
}

func (s *AuthoritySuite) TestCallReturnsWhenContextCancelled() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.loop.Call(ctx, func() {})

	s.ErrorIs(err, context.Canceled)
}

func (s *AuthoritySuite) TestAfterRunsOnLoopOnceDue() {
	ran := false
	timer := s.scheduler.After(2*time.Second, func() { ran = true })

	s.clock.Advance(time.Second)
	s.loop.Drain()
	s.False(ran)
	s.True(timer.Pending())

	s.clock.Advance(time.Second)
	s.False(ran, "due tasks run on the loop, not the clock goroutine")
	s.loop.Drain()
	s.True(ran)
	s.False(timer.Pending())
	s.False(timer.Cancel())
}

func (s *AuthoritySuite) TestCancelBeforeDuePreventsRun() {
	ran := false
	timer := s.scheduler.After(time.Second, func() { ran = true })

	s.True(timer.Cancel())
	s.clock.Advance(time.Minute)
	s.loop.Drain()

	s.False(ran)
}

func (s *AuthoritySuite) TestCancelAfterClockFiredButBeforeLoopRunPreventsRun() {
	ran := false
	timer := s.scheduler.After(time.Second, func() { ran = true })

	s.clock.Advance(time.Second)
	s.True(timer.Cancel())
	s.loop.Drain()

	s.False(ran)
}

func (s *AuthoritySuite) TestEveryRepeatsUntilCancelled() {
	count := 0
	timer := s.scheduler.Every(time.Second, func() { count++ })

	for i := 0; i < 3; i++ {
		s.clock.Advance(time.Second)
		s.loop.Drain()
	}
	s.Equal(3, count)

	s.True(timer.Cancel())
	s.clock.Advance(time.Second)
	s.loop.Drain()
	s.Equal(3, count)
	s.Zero(s.clock.PendingTimers())
}

func (s *AuthoritySuite) TestEveryCancelledByItsTaskIsNotRearmed() {
	count := 0
	var timer *Timer
	timer = s.scheduler.Every(time.Second, func() {
		count++
		timer.Cancel()
	})

	s.clock.Advance(time.Second)
	s.loop.Drain()
	s.clock.Advance(time.Second)
	s.loop.Drain()

	s.Equal(1, count)
	s.Zero(s.clock.PendingTimers())
}

func (s *AuthoritySuite) TestEveryCancelFromAnotherGoroutine() {
	count := 0
	timer := s.scheduler.Every(time.Second, func() { count++ })

	done := make(chan struct{})
	go func() {
		defer close(done)
		timer.Cancel()
	}()
	s.clock.Advance(time.Second)
	<-done
	s.loop.Drain()

	s.clock.Advance(time.Second)
	s.loop.Drain()
	s.LessOrEqual(count, 1)
	s.Zero(s.clock.PendingTimers())
}
