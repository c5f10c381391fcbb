package progress

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"
)

// rejectListener accepts TCP connections and closes them before any
// websocket handshake can complete, so every dial attempt fails. Returns
// the stream URL and a counter of attempts seen.
func rejectListener(t *testing.T) (string, *int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	var attempts int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			atomic.AddInt32(&attempts, 1)
			conn.Close()
		}
	}()

	return "ws://" + ln.Addr().String() + "/ws/session", &attempts
}

func TestConnectRetriesOnceThenGivesUp(t *testing.T) {
	url, attempts := rejectListener(t)

	ch := NewChannel(url, 50*time.Millisecond, time.Second)
	var states []State
	ch.OnStateChange(func(s State) { states = append(states, s) })

	if err := ch.Connect(context.Background(), "token"); err == nil {
		t.Fatal("expected connect failure")
	}

	if got := ch.State(); got != StateDisconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
	if n := atomic.LoadInt32(attempts); n != 2 {
		t.Errorf("expected exactly two dial attempts, got %d", n)
	}

	// No reconnect loop: the channel stays down until Connect is called
	// again.
	time.Sleep(150 * time.Millisecond)
	if n := atomic.LoadInt32(attempts); n != 2 {
		t.Errorf("expected no further dial attempts, got %d", n)
	}

	want := []State{StateConnecting, StateDisconnected}
	if len(states) != len(want) {
		t.Fatalf("expected states %v, got %v", want, states)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state %d: expected %s, got %s", i, want[i], states[i])
		}
	}
}

func TestConnectStopsAtContextCancel(t *testing.T) {
	url, attempts := rejectListener(t)

	// Back-off far longer than the deadline, so the retry never happens.
	ch := NewChannel(url, time.Hour, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := ch.Connect(ctx, "token"); err == nil {
		t.Fatal("expected connect failure")
	}

	if got := ch.State(); got != StateDisconnected {
		t.Errorf("expected disconnected, got %s", got)
	}
	if n := atomic.LoadInt32(attempts); n != 1 {
		t.Errorf("expected a single dial attempt, got %d", n)
	}
}
