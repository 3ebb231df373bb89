package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Mahamadovich/practicing--microservice-architecture/common/logger"
)

type gateFunc func(ctx context.Context) error

func (f gateFunc) EnsureReady(ctx context.Context) error { return f(ctx) }

// blockingServer runs until its context is cancelled.
type blockingServer struct {
	started atomic.Bool
	stopped atomic.Bool
	runErr  error
}

func (s *blockingServer) Run(ctx context.Context) error {
	s.started.Store(true)
	if s.runErr != nil {
		return s.runErr
	}
	<-ctx.Done()
	s.stopped.Store(true)
	return nil
}

func serveAsync(ctx context.Context, gate Gate, srv ProbeServer, exitOnReady bool) <-chan error {
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, gate, srv, exitOnReady, logger.NewNop()) }()
	return done
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestServe_ExitOnReadyStopsServer(t *testing.T) {
	srv := &blockingServer{}
	ready := gateFunc(func(context.Context) error { return nil })

	if err := waitResult(t, serveAsync(context.Background(), ready, srv, true)); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !srv.stopped.Load() {
		t.Error("probe server must be stopped after ready")
	}
}

func TestServe_GateFailureIsReturned(t *testing.T) {
	srv := &blockingServer{}
	boom := errors.New("topics not confirmed")
	failing := gateFunc(func(context.Context) error { return boom })

	err := waitResult(t, serveAsync(context.Background(), failing, srv, false))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want %v", err, boom)
	}
	if !srv.stopped.Load() {
		t.Error("probe server must be stopped after gate failure")
	}
}

func TestServe_SidecarKeepsServingUntilCancel(t *testing.T) {
	srv := &blockingServer{}
	readyCh := make(chan struct{})
	ready := gateFunc(func(context.Context) error { close(readyCh); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, ready, srv, false)

	<-readyCh
	select {
	case err := <-done:
		t.Fatalf("Serve returned before cancel: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	cancel()
	if err := waitResult(t, done); err != nil {
		t.Fatalf("Serve: %v", err)
	}
	if !srv.stopped.Load() {
		t.Error("probe server must stop on cancel")
	}
}

func TestServe_ServerErrorInterruptsGate(t *testing.T) {
	listenErr := errors.New("address already in use")
	srv := &blockingServer{runErr: listenErr}
	waiting := gateFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	err := waitResult(t, serveAsync(context.Background(), waiting, srv, true))
	if !errors.Is(err, listenErr) {
		t.Fatalf("err = %v; want %v", err, listenErr)
	}
}

func TestServe_WithoutServer(t *testing.T) {
	ready := gateFunc(func(context.Context) error { return nil })
	if err := waitResult(t, serveAsync(context.Background(), ready, nil, false)); err != nil {
		t.Fatalf("Serve: %v", err)
	}
}
