package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNewWritesComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: ComponentStorage, Output: &buf})

	logger.Info("hello", "k", "v")

	out := buf.String()
	if strings.Count(out, "component=storage") != 1 {
		t.Fatalf("expected a single component attribute, got %q", out)
	}
	if !strings.Contains(out, "k=v") {
		t.Fatalf("missing attribute in %q", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf}).WithComponent(ComponentMCP)

	if logger.Component() != ComponentMCP {
		t.Fatalf("Component() = %q", logger.Component())
	}
	logger.Info("x")
	if !strings.Contains(buf.String(), "component=mcp") {
		t.Fatalf("missing component in %q", buf.String())
	}
}

func TestLogOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf})

	logger.LogOperation(context.Background(), OpDelete, NewFields().WithLookupKey("2024-01-05", "groceries"), nil)
	if !strings.Contains(buf.String(), "level=INFO") || !strings.Contains(buf.String(), "operation=delete") {
		t.Fatalf("unexpected success log %q", buf.String())
	}

	buf.Reset()
	logger.LogOperation(context.Background(), OpCreate, NewFields(), errors.New("disk I/O error"))
	if !strings.Contains(buf.String(), "level=ERROR") || !strings.Contains(buf.String(), "disk I/O error") {
		t.Fatalf("unexpected failure log %q", buf.String())
	}
}

func TestLogFieldsToSliceIsSorted(t *testing.T) {
	fields := NewFields().
		WithRange("2024-01-01", "2024-01-31").
		WithOperation(OpList).
		WithError(nil)

	got := fields.ToSlice()
	want := []any{FieldEndDate, "2024-01-31", FieldOperation, OpList, FieldStartDate, "2024-01-01"}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ToSlice()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFromContext(t *testing.T) {
	if l := FromContext(context.Background()); l == nil || l.Component() != "unknown" {
		t.Fatalf("expected fallback logger, got %+v", l)
	}

	logger := New(Config{Component: ComponentWorker, Output: &bytes.Buffer{}})
	ctx := WithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatal("FromContext did not return stored logger")
	}
}

func TestMiddlewareLogsFailures(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Output: &buf})

	var sawLogger bool
	handler := Middleware(logger)(func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
		sawLogger = FromContext(ctx).Component() == ComponentApp
		return nil, errors.New("boom")
	})

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Name: "add_expense"}}
	if _, err := handler(context.Background(), "tools/call", req); err == nil {
		t.Fatal("expected error to pass through")
	}
	if !sawLogger {
		t.Fatal("handler did not receive request-scoped logger")
	}

	out := buf.String()
	for _, want := range []string{"MCP request failed", "tool=add_expense", "method=tools/call", "error=boom", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
}
