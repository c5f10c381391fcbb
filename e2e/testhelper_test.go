package e2e

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/fablecraft/appcore/internal/client"
	"github.com/fablecraft/appcore/internal/config"
	"github.com/fablecraft/appcore/internal/session"
	"github.com/fablecraft/appcore/internal/stubserver"
)

const testJWTSecret = "test-secret-for-e2e"

// testEnv holds a stub backend on a real loopback port plus a session
// coordinator pointed at it, so tests exercise the full HTTP + websocket
// path.
type testEnv struct {
	server *stubserver.Server
	coord  *session.Coordinator
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	srv := stubserver.New(stubserver.Options{
		JWTSecret: testJWTSecret,
		StepDelay: 100 * time.Millisecond,
	})
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Shutdown() })

	token, err := stubserver.GenerateToken(testJWTSecret, "e2e-user")
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	addr := ln.Addr().String()
	cfg := &config.Config{
		API: config.APIConfig{BaseURL: "http://" + addr, Timeout: 10},
		Push: config.PushConfig{
			URL:          "ws://" + addr + "/ws/session",
			RetryBackoff: 1,
			PingInterval: 5,
		},
	}

	coord := session.New(cfg, client.StaticCredential(token))
	t.Cleanup(coord.Disconnect)

	return &testEnv{server: srv, coord: coord}
}

// connect opens the push stream or fails the test.
func (e *testEnv) connect(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.coord.Connect(ctx); err != nil {
		t.Fatalf("failed to connect push stream: %v", err)
	}
}
