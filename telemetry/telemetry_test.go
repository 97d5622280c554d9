package telemetry

import (
	"strings"
	"testing"

	"go.viam.com/test"
)

func TestPublishNeverBlocksAndDropsWhenFull(t *testing.T) {
	c := NewChannel(2)

	c.Publish(Record{T: 1})
	c.Publish(Record{T: 2})
	c.Publish(Record{T: 3}) // buffer full: dropped, not blocked

	test.That(t, c.Dropped(), test.ShouldEqual, uint64(1))

	first := <-c.Records()
	second := <-c.Records()
	test.That(t, first.T, test.ShouldEqual, 1.0)
	test.That(t, second.T, test.ShouldEqual, 2.0)
}

func TestJSONEncoderUsesLiteralFieldNames(t *testing.T) {
	enc := JSONEncoder{}
	b, err := enc.Encode(Record{
		T: 1.5, Pos: 0.1, Intensity: 10000, Mag: 0.4,
		DeadlineMiss: 1, MPSSafe: true, MPSAbort: false,
	})
	test.That(t, err, test.ShouldBeNil)

	got := string(b)
	for _, field := range []string{`"t":1.5`, `"pos":0.1`, `"intensity":10000`, `"mag":0.4`, `"deadline_miss":1`, `"mps_safe":true`, `"mps_abort":false`} {
		test.That(t, strings.Contains(got, field), test.ShouldBeTrue)
	}
}
