package observability

import (
	"context"
	"testing"
	"time"
)

func TestInitTracer_LazyConnection(t *testing.T) {
	// gRPC connects lazily, so init succeeds even with no collector running.
	ctx := context.Background()

	shutdown, err := InitTracer(ctx, "marketcap-test", "localhost:4317")
	if err != nil {
		t.Logf("InitTracer returned error (may be expected in this environment): %v", err)
		return
	}
	if shutdown == nil {
		t.Fatal("expected shutdown function to be non-nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	_ = shutdown(shutdownCtx)
}

func TestInitTracer_UnreachableEndpoint(t *testing.T) {
	ctx := context.Background()

	shutdown, err := InitTracer(ctx, "marketcap-test", "invalid-endpoint:9999")
	if err != nil {
		t.Logf("InitTracer failed as expected in this environment: %v", err)
		return
	}
	if shutdown == nil {
		t.Error("expected shutdown function to be non-nil")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	_ = shutdown(shutdownCtx)
}
