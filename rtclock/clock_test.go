package rtclock

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

func TestWaitUntilNextTickAdvancesByExactlyOnePeriod(t *testing.T) {
	mock := clock.NewMock()
	c := NewWithClock(mock, time.Millisecond)

	done := make(chan struct{})
	go func() {
		c.WaitUntilNextTick()
		close(done)
	}()

	mock.Add(time.Millisecond)
	<-done

	test.That(t, c.TimeToNext(), test.ShouldEqual, time.Millisecond)
}

func TestWaitUntilNextTickReturnsImmediatelyWhenLate(t *testing.T) {
	mock := clock.NewMock()
	c := NewWithClock(mock, time.Millisecond)

	// fall behind by three periods without anyone calling WaitUntilNextTick
	mock.Add(3 * time.Millisecond)

	start := mock.Now()
	c.WaitUntilNextTick()
	// no blocking should have been required: next was already in the past
	test.That(t, mock.Now(), test.ShouldEqual, start)

	// catch-up is single-step: the target advances by exactly one period,
	// so we're still behind by one period, not caught up
	test.That(t, c.TimeToNext(), test.ShouldEqual, 0)
}

func TestSetPeriodRebasesFromNow(t *testing.T) {
	mock := clock.NewMock()
	c := NewWithClock(mock, time.Millisecond)

	mock.Add(10 * time.Millisecond) // fall far behind
	c.SetPeriod(2 * time.Millisecond)

	test.That(t, c.Period(), test.ShouldEqual, 2*time.Millisecond)
	test.That(t, c.TimeToNext(), test.ShouldEqual, 2*time.Millisecond)
}

func TestTimeToNextIsZeroWhenLate(t *testing.T) {
	mock := clock.NewMock()
	c := NewWithClock(mock, time.Millisecond)

	mock.Add(5 * time.Millisecond)
	test.That(t, c.TimeToNext(), test.ShouldEqual, 0)
}
