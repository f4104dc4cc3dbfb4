package coildriver

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edumag/edumag/internal/monitoring"
)

func connected(t *testing.T, dev *MockDevice) *Channel {
	t.Helper()
	c := NewChannel(dev.Opener(), monitoring.NewMetrics())
	require.NoError(t, c.Connect("mock0", PortOptions{}, DefaultReadTimeout))
	return c
}

func TestSendWithEcho_ReturnsPayload(t *testing.T) {
	dev := NewMockDevice(EchoResponder("OK"))
	c := connected(t, dev)

	got, err := c.SendWithEcho("PING", 1)
	require.NoError(t, err)
	assert.Equal(t, "OK", got)
	assert.Equal(t, []string{"PING"}, dev.Received())
	assert.Equal(t, DefaultReadTimeout, dev.ReadTimeout)
}

func TestSendWithEcho_MultiLinePayload(t *testing.T) {
	dev := NewMockDevice(EchoResponder("A=1", "B=2"))
	c := connected(t, dev)

	got, err := c.SendWithEcho("STATUS", 1)
	require.NoError(t, err)
	assert.Equal(t, "A=1\nB=2", got)
}

func TestSendWithEcho_EmptyPayload(t *testing.T) {
	dev := NewMockDevice(EchoResponder())
	c := connected(t, dev)

	got, err := c.SendWithEcho(CmdReset, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSendWithEcho_CRLFReplies(t *testing.T) {
	dev := NewMockDevice(func(line string) []string {
		return []string{line + "\r", "OK\r", "\r"}
	})
	c := connected(t, dev)

	got, err := c.SendWithEcho("PING", 1)
	require.NoError(t, err)
	assert.Equal(t, "OK", got)
}

func TestSendWithEcho_TrailingNewlineInCommand(t *testing.T) {
	dev := NewMockDevice(EchoResponder("OK"))
	c := connected(t, dev)

	got, err := c.SendWithEcho("PING\n", 1)
	require.NoError(t, err)
	assert.Equal(t, "OK", got)
	assert.Equal(t, []string{"PING"}, dev.Received())
}

func TestSendWithEcho_NeverEchoes(t *testing.T) {
	tests := []struct {
		name    string
		respond Responder
	}{
		{"silent", nil},
		{"wrong echo", func(string) []string { return []string{"NOPE", "OK", ""} }},
		{"partial echo", func(line string) []string { return []string{line[:2], ""} }},
	}
	for _, tt := range tests {
		for _, attempts := range []int{1, 3, 5} {
			t.Run(fmt.Sprintf("%s/%d", tt.name, attempts), func(t *testing.T) {
				dev := NewMockDevice(tt.respond)
				c := connected(t, dev)

				got, err := c.SendWithEcho("PING", attempts)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrEchoMismatch)
				assert.Empty(t, got)
				assert.Equal(t, attempts, dev.Writes())
			})
		}
	}
}

func TestSendWithEcho_NonPositiveAttemptsMeansOne(t *testing.T) {
	dev := NewMockDevice(nil)
	c := connected(t, dev)

	_, err := c.SendWithEcho("PING", 0)
	assert.ErrorIs(t, err, ErrEchoMismatch)
	assert.Equal(t, 1, dev.Writes())
}

func TestSendWithEcho_DiscardsStaleInput(t *testing.T) {
	dev := NewMockDevice(EchoResponder("OK"))
	c := connected(t, dev)
	dev.Inject("stale line\nmore noise\n")

	got, err := c.SendWithEcho("PING", 1)
	require.NoError(t, err)
	assert.Equal(t, "OK", got)
	assert.Equal(t, 1, dev.Writes())
}

// faultyFirst answers the first command with bad, then behaves like a
// healthy board.
func faultyFirst(bad Responder) Responder {
	calls := 0
	healthy := EchoResponder("OK")
	return func(line string) []string {
		calls++
		if calls == 1 {
			if bad == nil {
				return nil
			}
			return bad(line)
		}
		return healthy(line)
	}
}

func TestSendWithEcho_RetryAfterMismatch(t *testing.T) {
	dev := NewMockDevice(faultyFirst(func(string) []string { return []string{"GARBLED", "OK", ""} }))
	c := connected(t, dev)

	got, err := c.SendWithEcho("PING", 2)
	require.NoError(t, err)
	assert.Equal(t, "OK", got)
	assert.Equal(t, 2, dev.Writes())
}

func TestSendWithEcho_RecoversAfterFailedRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		bad  Responder
	}{
		{"wrong echo", func(string) []string { return []string{"GARBLED", "OK", ""} }},
		{"partial echo", func(line string) []string { return []string{line[:2], "OK", ""} }},
		{"silent", nil},
		{"echo split by noise", func(line string) []string { return []string{"NOISE", line, "OK", "", "OK", ""} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := NewMockDevice(faultyFirst(tt.bad))
			c := connected(t, dev)

			_, err := c.SendWithEcho("PING", 1)
			require.ErrorIs(t, err, ErrEchoMismatch)

			for i := 0; i < 3; i++ {
				got, err := c.SendWithEcho("PING", 1)
				require.NoError(t, err, "round trip %d after the failure", i+1)
				assert.Equal(t, "OK", got)
			}
			assert.Equal(t, 4, dev.Writes())
		})
	}
}

func TestSendWithEcho_Disconnected(t *testing.T) {
	dev := NewMockDevice(EchoResponder("OK"))
	c := NewChannel(dev.Opener(), nil)

	_, err := c.SendWithEcho("PING", 3)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, dev.Writes())

	require.NoError(t, c.Connect("mock0", PortOptions{}, 0))
	require.NoError(t, c.Disconnect())
	_, err = c.SendWithEcho("PING", 3)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Zero(t, dev.Writes())
	assert.True(t, dev.Closed)
}

func TestSendWithEcho_WriteError(t *testing.T) {
	dev := NewMockDevice(EchoResponder("OK"))
	c := connected(t, dev)
	dev.WriteError = errors.New("boom")

	_, err := c.SendWithEcho("PING", 3)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEchoMismatch)
	assert.Equal(t, 1, dev.Writes())

	got, err := c.SendWithEcho("PING", 1)
	require.NoError(t, err)
	assert.Equal(t, "OK", got)
}

func TestSendWithEcho_Serialised(t *testing.T) {
	dev := NewMockDevice(func(line string) []string {
		return []string{line, "R:" + line, ""}
	})
	c := connected(t, dev)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := fmt.Sprintf("CMD%d", i)
			got, err := c.SendWithEcho(cmd, 1)
			if err != nil {
				errs <- err
				return
			}
			if got != "R:"+cmd {
				errs <- fmt.Errorf("%s: got %q", cmd, got)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestChannel_ConnectLifecycle(t *testing.T) {
	first := NewMockDevice(EchoResponder())
	second := NewMockDevice(EchoResponder())
	opened := map[string]*MockDevice{"a": first, "b": second}
	c := NewChannel(func(path string, _ PortOptions) (SerialPorter, error) {
		if d, ok := opened[path]; ok {
			return d, nil
		}
		return nil, errors.New("no such port")
	}, nil)

	assert.False(t, c.Connected())
	assert.ErrorIs(t, c.Disconnect(), ErrNotConnected)

	require.NoError(t, c.Connect("a", PortOptions{}, 0))
	assert.True(t, c.Connected())
	assert.Equal(t, "a", c.PortName())

	require.NoError(t, c.Connect("b", PortOptions{}, 0))
	assert.True(t, first.Closed, "reconnecting must close the previous port")
	assert.Equal(t, "b", c.PortName())

	err := c.Connect("missing", PortOptions{}, 0)
	require.Error(t, err)
	assert.False(t, c.Connected())
	assert.True(t, second.Closed)
}

func TestChannel_ConnectSamePortKeepsConnection(t *testing.T) {
	dev := NewMockDevice(EchoResponder("OK"))
	opens := 0
	c := NewChannel(func(path string, opts PortOptions) (SerialPorter, error) {
		opens++
		return dev.Opener()(path, opts)
	}, nil)

	require.NoError(t, c.Connect("a", PortOptions{}, 0))
	require.NoError(t, c.Connect("a", PortOptions{BaudRate: DefaultBaudRate, Parity: "none"}, 0))
	assert.Equal(t, 1, opens)
	assert.False(t, dev.Closed)

	require.NoError(t, c.Connect("a", PortOptions{BaudRate: 9600}, 0))
	assert.Equal(t, 2, opens, "changed options reopen the port")
	assert.True(t, c.Connected())
}

func TestChannel_SetAttempts(t *testing.T) {
	c := NewChannel(nil, nil)
	assert.Equal(t, DefaultAttempts, c.Attempts())
	c.SetAttempts(4)
	assert.Equal(t, 4, c.Attempts())
	c.SetAttempts(-2)
	assert.Equal(t, 1, c.Attempts())
}
