package broker

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

// bareSession builds a Session without a connection or goroutines, enough to
// exercise the Send gatekeeping that protects the tick loop.
func bareSession(buffer int) *Session {
	return &Session{
		log:    logrus.WithField("component", "session-test"),
		outbox: make(chan []byte, buffer),
		Done:   make(chan struct{}),
	}
}

func TestSession_Send_EnqueuesUntilFull(t *testing.T) {
	// GIVEN a session with room for one frame
	s := bareSession(1)

	// THEN the first send is accepted and the second reports a slow renderer
	assert.True(t, s.Send([]byte("a")))
	assert.False(t, s.Send([]byte("b")), "full outbox must not block or accept")
}

func TestSession_Send_FailsAfterDone(t *testing.T) {
	// GIVEN a finished session
	s := bareSession(4)
	close(s.Done)

	// THEN sends are refused even though the outbox has room
	assert.False(t, s.Send([]byte("a")))
}
