package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBuildAuditEventIncludesRequiredFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/product", nil)
	req.Header.Set("X-Request-Id", "req-test-1")
	req.RemoteAddr = "127.0.0.1:12345"

	ev := BuildAuditEvent(req, AuditInput{
		EventName:   "product.create",
		ActorUserID: "user-42",
		TargetType:  "product",
		TargetID:    "65f1c0ffee",
		Action:      "create",
		Outcome:     "success",
		Reason:      "product_created",
	})

	if ev.EventVersion != 1 {
		t.Fatalf("expected event version 1, got %d", ev.EventVersion)
	}
	if ev.ActorIP != "127.0.0.1" {
		t.Fatalf("expected actor ip without port, got %q", ev.ActorIP)
	}
	if ev.RequestID != "req-test-1" {
		t.Fatalf("unexpected request id: %s", ev.RequestID)
	}
	if _, err := time.Parse(time.RFC3339, ev.TS); err != nil {
		t.Fatalf("expected RFC3339 ts, got %q err=%v", ev.TS, err)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestBuildAuditEventDefaultsAnonymousActor(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/product", nil)
	ev := BuildAuditEvent(req, AuditInput{
		EventName:  "gateway.authorization",
		TargetType: "route",
		Action:     "authorize",
		Outcome:    "rejected",
		Reason:     "missing_credentials",
	})
	if ev.ActorUserID != "anonymous" || ev.TargetID != "-" || ev.RequestID != "-" {
		t.Fatalf("expected placeholder fields, got %+v", ev)
	}
	if err := ev.Validate(); err != nil {
		t.Fatalf("expected valid event, got %v", err)
	}
}

func TestAuditEventValidateRejectsMissingEventName(t *testing.T) {
	ev := AuditEvent{
		EventVersion: 1,
		ActorUserID:  "user-42",
		ActorIP:      "127.0.0.1",
		TargetType:   "product",
		TargetID:     "abc",
		Action:       "delete",
		Outcome:      "success",
		Reason:       "ok",
		RequestID:    "req-1",
		TS:           time.Now().UTC().Format(time.RFC3339),
	}
	if err := ev.Validate(); err == nil {
		t.Fatal("expected validation error for missing event_name")
	}
}

func TestEmitAuditWritesStructuredRecord(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	defer slog.SetDefault(prev)

	req := httptest.NewRequest("DELETE", "/api/product/abc", nil)
	EmitAudit(req, AuditInput{
		EventName:  "product.delete",
		TargetType: "product",
		TargetID:   "abc",
		Action:     "delete",
		Outcome:    "success",
		Reason:     "product_deleted",
	}, "store", "mongo")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if rec["event_name"] != "product.delete" || rec["target_id"] != "abc" || rec["store"] != "mongo" {
		t.Fatalf("unexpected audit record: %v", rec)
	}
}
