package loading

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/events"
	"github.com/mcoot/arenasession/internal/model"
	"github.com/mcoot/arenasession/internal/replicated"
	"github.com/mcoot/arenasession/internal/testutil"
)

type CoordinatorTestSuite struct {
	suite.Suite
	bus         *events.Bus
	coordinator *Coordinator
	updates     []model.ProgressUpdated
}

func TestCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func (s *CoordinatorTestSuite) SetupTest() {
	s.bus = events.NewBus()
	s.coordinator = NewCoordinator(s.bus, testutil.NopLogger())
	s.updates = nil
	s.bus.ProgressUpdated.Subscribe(func(u model.ProgressUpdated) {
		s.updates = append(s.updates, u)
	})
}

func (s *CoordinatorTestSuite) TestOwnerReportsProgress() {
	s.coordinator.AddTracker(1)

	s.Require().NoError(s.coordinator.Report(1, 1, 0.5))

	p, ok := s.coordinator.Progress(1)
	s.True(ok)
	s.Equal(0.5, p)
	s.Equal([]model.ProgressUpdated{{ClientID: 1, Progress: 0.5}}, s.updates)
}

func (s *CoordinatorTestSuite) TestOnlyOwnerMayWrite() {
	s.coordinator.AddTracker(1)

	s.ErrorIs(s.coordinator.Report(2, 1, 0.5), model.ErrNotAuthority)
	s.ErrorIs(s.coordinator.Report(model.ServerClientID, 1, 0.5), model.ErrNotAuthority)

	p, _ := s.coordinator.Progress(1)
	s.Zero(p)
}

func (s *CoordinatorTestSuite) TestValuesClamped() {
	s.coordinator.AddTracker(1)

	s.Require().NoError(s.coordinator.Report(1, 1, 1.7))

	p, _ := s.coordinator.Progress(1)
	s.Equal(1.0, p)
}

func (s *CoordinatorTestSuite) TestRegressionIgnoredUntilNextLoad() {
	s.coordinator.AddTracker(1)
	s.Require().NoError(s.coordinator.Report(1, 1, 0.8))

	s.Require().NoError(s.coordinator.Report(1, 1, 0.3))
	p, _ := s.coordinator.Progress(1)
	s.Equal(0.8, p)

	s.coordinator.BeginLoad()
	p, _ = s.coordinator.Progress(1)
	s.Zero(p)

	s.Require().NoError(s.coordinator.Report(1, 1, 0.3))
	p, _ = s.coordinator.Progress(1)
	s.Equal(0.3, p)
}

func (s *CoordinatorTestSuite) TestRemovedClientLeavesAggregates() {
	s.coordinator.AddTracker(1)
	s.coordinator.AddTracker(2)
	s.Require().NoError(s.coordinator.Report(1, 1, 1))
	s.False(s.coordinator.AllLoaded())

	s.coordinator.RemoveTracker(2)

	s.True(s.coordinator.AllLoaded())
	s.Equal(map[model.ClientID]float64{1: 1}, s.coordinator.Snapshot())
	s.Equal([]model.ClientID{1}, s.coordinator.Clients())
	s.ErrorIs(s.coordinator.Report(2, 2, 0.5), model.ErrStaleReference)
}

func (s *CoordinatorTestSuite) TestLocalProgressWithoutTracker() {
	s.Require().NoError(s.coordinator.SetLocalProgress(0.4))
	s.Equal(0.4, s.coordinator.LocalProgress())

	s.Require().NoError(s.coordinator.SetLocalProgress(0.2))
	s.Equal(0.4, s.coordinator.LocalProgress())
}

func (s *CoordinatorTestSuite) TestLocalProgressUsesAttachedTracker() {
	s.coordinator.AddTracker(3)
	s.coordinator.Attach(3)

	s.Require().NoError(s.coordinator.SetLocalProgress(0.6))

	p, _ := s.coordinator.Progress(3)
	s.Equal(0.6, p)
	s.Equal(0.6, s.coordinator.LocalProgress())

	s.coordinator.Detach()
	s.Zero(s.coordinator.LocalProgress())
}

func (s *CoordinatorTestSuite) TestTrackerWritesReplicate() {
	var sent []any
	s.coordinator.SetSink(replicated.SinkFunc(func(field string, owner model.ClientID, value any) {
		s.Equal(FieldName, field)
		s.Equal(model.ClientID(1), owner)
		sent = append(sent, value)
	}))
	s.coordinator.AddTracker(1)

	s.Require().NoError(s.coordinator.Report(1, 1, 0.25))
	s.coordinator.ApplyRemote(1, 0.5)

	s.Equal([]any{0.25}, sent)
	p, _ := s.coordinator.Progress(1)
	s.Equal(0.5, p)
}

type retractingSink struct {
	retracted []model.ClientID
}

func (r *retractingSink) Replicate(string, model.ClientID, any) {}

func (r *retractingSink) Retract(field string, owner model.ClientID) {
	if field == FieldName {
		r.retracted = append(r.retracted, owner)
	}
}

func (s *CoordinatorTestSuite) TestRemovedTrackerIsRetracted() {
	sink := &retractingSink{}
	s.coordinator.SetSink(sink)
	s.coordinator.AddTracker(1)
	s.coordinator.AddTracker(2)

	s.coordinator.RemoveTracker(2)
	s.coordinator.RemoveTracker(2)

	s.Equal([]model.ClientID{2}, sink.retracted)
	s.Equal([]model.ClientID{1}, s.coordinator.Clients())
}
