package replicated

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/arenasession/internal/model"
)

type FieldSuite struct {
	suite.Suite
}

func TestFieldSuite(t *testing.T) {
	suite.Run(t, new(FieldSuite))
}

func (s *FieldSuite) TestServerFieldRejectsClientWrites() {
	f := NewField("alive", true, ServerWrite, 3)

	err := f.Set(3, false)
	s.ErrorIs(err, model.ErrNotAuthority)
	s.True(f.Value())

	s.Require().NoError(f.Set(model.ServerClientID, false))
	s.False(f.Value())
}

func (s *FieldSuite) TestOwnerFieldAcceptsOnlyOwner() {
	f := NewField("progress", 0.0, OwnerWrite, 5)

	s.ErrorIs(f.Set(model.ServerClientID, 0.5), model.ErrNotAuthority)
	s.ErrorIs(f.Set(6, 0.5), model.ErrNotAuthority)
	s.Require().NoError(f.Set(5, 0.5))
	s.Equal(0.5, f.Value())
}

func (s *FieldSuite) TestChangeNotificationAndReplication() {
	f := NewField("name", "", ServerWrite, 0)
	var changes []Change[string]
	var replicated []any
	f.OnChanged(func(c Change[string]) { changes = append(changes, c) })
	f.SetSink(SinkFunc(func(field string, _ model.ClientID, value any) {
		s.Equal("name", field)
		replicated = append(replicated, value)
	}))

	s.Require().NoError(f.Set(model.ServerClientID, "Ada"))
	s.Require().NoError(f.Set(model.ServerClientID, "Ada"))

	s.Len(changes, 1)
	s.Equal("", changes[0].Previous)
	s.Equal("Ada", changes[0].Current)
	s.Equal([]any{"Ada"}, replicated)
}

func (s *FieldSuite) TestApplyRemoteNotifiesWithoutReplicating() {
	f := NewField("name", "", ServerWrite, 0)
	notified := 0
	f.OnChanged(func(Change[string]) { notified++ })
	f.SetSink(SinkFunc(func(string, model.ClientID, any) { s.Fail("mirror must not re-replicate") }))

	f.ApplyRemote("Grace")

	s.Equal("Grace", f.Value())
	s.Equal(1, notified)
}

func (s *FieldSuite) TestOnlyServerReassignsOwner() {
	f := NewField("progress", 0.0, OwnerWrite, 1)

	s.ErrorIs(f.SetOwner(1, 2), model.ErrNotAuthority)
	s.Require().NoError(f.SetOwner(model.ServerClientID, 2))
	s.Equal(model.ClientID(2), f.Owner())
	s.True(f.CanWrite(2))
	s.False(f.CanWrite(1))
}

type recordingSink struct {
	retracted []string
}

func (r *recordingSink) Replicate(string, model.ClientID, any) {}

func (r *recordingSink) Retract(field string, owner model.ClientID) {
	r.retracted = append(r.retracted, fmt.Sprintf("%s/%d", field, owner))
}

func (s *FieldSuite) TestRetractRemovesFromMirrors() {
	f := NewField("load_progress", 0.0, OwnerWrite, 4)
	sink := &recordingSink{}
	f.SetSink(sink)
	notified := 0
	f.OnChanged(func(Change[float64]) { notified++ })

	f.Retract()
	f.ApplyRemote(0.5)

	s.Equal([]string{"load_progress/4"}, sink.retracted)
	s.Equal(0, notified)
}

func (s *FieldSuite) TestRetractWithoutRetractorOnlyCloses() {
	f := NewField("name", "", ServerWrite, 0)
	f.SetSink(SinkFunc(func(string, model.ClientID, any) {}))

	s.NotPanics(f.Retract)
}
