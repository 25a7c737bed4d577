package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestSleepHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := Sleep(ctx, time.Minute); err == nil {
		t.Fatalf("Sleep: want context error")
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Sleep: did not return promptly")
	}
}

func TestTraceFields(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "abc", RequestID: "req-1"})
	got := TraceFields(ctx)
	if len(got) != 4 || got[1] != "abc" || got[3] != "req-1" {
		t.Fatalf("TraceFields: got=%v", got)
	}
	if TraceFields(context.Background()) != nil {
		t.Fatalf("TraceFields: want nil without trace data")
	}
}
