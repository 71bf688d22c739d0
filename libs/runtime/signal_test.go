package runtime

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestShutdownRunsEveryStep(t *testing.T) {
	var order []string
	step := func(name string, err error) ShutdownStep {
		return ShutdownStep{Name: name, Stop: func(ctx context.Context) error {
			if _, ok := ctx.Deadline(); !ok {
				t.Fatalf("step %s has no deadline", name)
			}
			order = append(order, name)
			return err
		}}
	}

	err := Shutdown(time.Second,
		step("grpc", nil),
		step("http", errors.New("listener busy")),
		ShutdownStep{Name: "skipped"},
		step("otel", nil),
	)
	if err == nil || !strings.Contains(err.Error(), "http: listener busy") {
		t.Fatalf("expected joined http error, got %v", err)
	}
	if strings.Join(order, ",") != "grpc,http,otel" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestShutdownNoSteps(t *testing.T) {
	if err := Shutdown(time.Second); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
