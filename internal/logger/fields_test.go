package logger

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	id := uuid.New()
	r := httptest.NewRequest("GET", "/api/v1/tasks", nil)
	r.URL.Path = "/api/v1/tasks/\x1b[31m"

	fields := append(Request(r),
		UserID(id),
		ClientIP("203.0.113.7\n"+strings.Repeat("9", 100)),
		Title("buy\x00 milk"),
	)
	log.Info("event", fields...)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}
	got := entries[0].ContextMap()

	if got["method"] != "GET" {
		t.Errorf("method = %v", got["method"])
	}
	if got["path"] != "/api/v1/tasks/[31m" {
		t.Errorf("path = %q", got["path"])
	}
	if got["user_id"] != id.String() {
		t.Errorf("user_id = %v, want %s", got["user_id"], id)
	}
	if ip, _ := got["ip"].(string); len(ip) != maxIPLength+3 {
		t.Errorf("ip not truncated: %q", ip)
	}
	if got["title"] != "buy milk" {
		t.Errorf("title = %q", got["title"])
	}
}
