package mailbox

import (
	"testing"

	"go.viam.com/test"
)

func TestHasPendingRequestIsFalseUntilCall(t *testing.T) {
	c := NewChannel()
	test.That(t, c.HasPendingRequest(), test.ShouldBeFalse)

	done := make(chan struct{})
	go func() {
		reply, err := c.Call(Command{Cmd: CmdGetStatus})
		test.That(t, err, test.ShouldBeNil)
		test.That(t, reply.OK, test.ShouldBeTrue)
		close(done)
	}()

	for !c.HasPendingRequest() {
	}
	cmd := c.ReceiveOne()
	test.That(t, cmd.Cmd, test.ShouldEqual, CmdGetStatus)
	c.SendReply(OKReply())
	<-done
}

func TestCallRejectsSecondRequestWhileOneInFlight(t *testing.T) {
	c := NewChannel()
	c.requests <- Command{Cmd: CmdGetStatus} // fill the one-deep buffer directly

	_, err := c.Call(Command{Cmd: CmdGetStatus})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "already in flight")
}
