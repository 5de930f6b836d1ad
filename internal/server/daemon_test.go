package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/vibealong/vibealong/internal/config"
)

func TestNewDaemonRequiresServer(t *testing.T) {
	if _, err := NewDaemon(config.ServerConfig{}, nil, nil); err == nil {
		t.Fatal("NewDaemon() should reject a nil server")
	}
}

func TestDaemonServesAndShutsDown(t *testing.T) {
	env := newTestEnv(t, Options{})
	daemon, err := NewDaemon(config.ServerConfig{Host: "127.0.0.1"}, env.server, env.playback)
	if err != nil {
		t.Fatalf("NewDaemon() error = %v", err)
	}
	if err := daemon.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- daemon.Run(ctx)
	}()

	resp, err := http.Get("http://" + daemon.HTTPAddr() + "/healthz")
	if err != nil {
		cancel()
		t.Fatalf("GET /healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /healthz status = %d", resp.StatusCode)
	}

	conn, err := grpc.NewClient(daemon.GRPCAddr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		cancel()
		t.Fatalf("grpc dial: %v", err)
	}
	defer conn.Close()

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()
	var status healthpb.HealthCheckResponse_ServingStatus
	for {
		res, err := healthpb.NewHealthClient(conn).Check(checkCtx, &healthpb.HealthCheckRequest{})
		if err == nil {
			status = res.GetStatus()
			if status == healthpb.HealthCheckResponse_SERVING {
				break
			}
		}
		if checkCtx.Err() != nil {
			cancel()
			t.Fatalf("health check never reported SERVING: last status %v, err %v", status, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
