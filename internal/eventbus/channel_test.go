package eventbus

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ChannelSuite struct {
	suite.Suite
	channel *Channel[int]
}

func TestChannelSuite(t *testing.T) {
	suite.Run(t, new(ChannelSuite))
}

func (s *ChannelSuite) SetupTest() {
	s.channel = NewChannel[int]()
}

func (s *ChannelSuite) TestPublishReachesAllSubscribers() {
	var a, b []int
	s.channel.Subscribe(func(v int) { a = append(a, v) })
	s.channel.Subscribe(func(v int) { b = append(b, v) })

	s.channel.Publish(1)
	s.channel.Publish(2)

	s.Equal([]int{1, 2}, a)
	s.Equal([]int{1, 2}, b)
}

func (s *ChannelSuite) TestUnsubscribeStopsDelivery() {
	var got []int
	sub := s.channel.Subscribe(func(v int) { got = append(got, v) })

	s.channel.Publish(1)
	sub.Unsubscribe()
	sub.Unsubscribe()
	s.channel.Publish(2)

	s.Equal([]int{1}, got)
	s.Equal(0, s.channel.Len())
}

func (s *ChannelSuite) TestSubscribeDuringDispatchIsDeferred() {
	var late []int
	s.channel.Subscribe(func(v int) {
		if v == 1 {
			s.channel.Subscribe(func(v int) { late = append(late, v) })
		}
	})

	s.channel.Publish(1)
	s.Empty(late, "subscriber added mid-dispatch must not see the current message")

	s.channel.Publish(2)
	s.Equal([]int{2}, late)
}

func (s *ChannelSuite) TestUnsubscribeDuringDispatchIsDeferred() {
	var second []int
	var secondSub *Subscription
	s.channel.Subscribe(func(int) { secondSub.Unsubscribe() })
	secondSub = s.channel.Subscribe(func(v int) { second = append(second, v) })

	s.channel.Publish(1)
	s.Equal([]int{1}, second, "removal applies after the running dispatch")

	s.channel.Publish(2)
	s.Equal([]int{1}, second)
	s.Equal(1, s.channel.Len())
}

func (s *ChannelSuite) TestNestedPublishDefersUntilOutermostDispatchEnds() {
	var order []string
	s.channel.Subscribe(func(v int) {
		order = append(order, "outer")
		if v == 1 {
			s.channel.Subscribe(func(int) { order = append(order, "added") })
			s.channel.Publish(2)
		}
	})

	s.channel.Publish(1)

	s.Equal([]string{"outer", "outer"}, order)
	s.Equal(2, s.channel.Len())
}

func (s *ChannelSuite) TestDisposeIgnoresLaterPublishes() {
	var got []int
	s.channel.Subscribe(func(v int) { got = append(got, v) })

	s.channel.Dispose()
	s.channel.Publish(1)
	sub := s.channel.Subscribe(func(v int) { got = append(got, v) })
	sub.Unsubscribe()

	s.Empty(got)
}

func (s *ChannelSuite) TestGroupUnsubscribesEverything() {
	var g Group
	calls := 0
	g.Add(s.channel.Subscribe(func(int) { calls++ }), s.channel.Subscribe(func(int) { calls++ }))
	s.Equal(2, g.Len())

	g.UnsubscribeAll()
	g.UnsubscribeAll()
	s.channel.Publish(1)

	s.Equal(0, calls)
	s.Equal(0, g.Len())
}
