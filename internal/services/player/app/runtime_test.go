package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	platformgrpc "github.com/louisbranch/stories/internal/platform/grpc"
)

func freePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	_ = listener.Close()
	return port
}

func TestRunFailsWhenStorageDirIsAFile(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}

	err := Run(context.Background(), RuntimeConfig{
		HTTPAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(blocker, "stories.db"),
	})
	if err == nil {
		t.Fatal("expected storage dir error")
	}
}

func TestRunReportsHealthUntilCanceled(t *testing.T) {
	port := freePort(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, RuntimeConfig{
			HTTPAddr:   "127.0.0.1:0",
			HealthPort: port,
			DBPath:     filepath.Join(t.TempDir(), "data", "stories.db"),
		})
	}()

	conn, err := platformgrpc.DialWithHealth(context.Background(), nil, fmt.Sprintf("127.0.0.1:%d", port), HealthService, 5*time.Second, t.Logf)
	if err != nil {
		t.Fatalf("dial health: %v", err)
	}
	_ = conn.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("run did not stop")
	}
}
