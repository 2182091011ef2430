package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWritesEventAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.WarnObj("feed fetch failed", "feed_fetch_failed", map[string]any{
		"source": "TinkerTry",
		"status": 503,
	})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got: %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("Expected warn level, got: %s", entry.Level)
	}
	ctx := entry.ContextMap()
	if ctx["event"] != "feed_fetch_failed" {
		t.Errorf("Expected event field, got: %v", ctx["event"])
	}
	if ctx["source"] != "TinkerTry" {
		t.Errorf("Expected source field, got: %v", ctx["source"])
	}
	if ctx["status"] != int64(503) {
		t.Errorf("Expected status 503, got: %v (%T)", ctx["status"], ctx["status"])
	}
}

func TestFieldsAreSortedByKey(t *testing.T) {
	fields := toFields("evt", map[string]any{"b": 1, "a": 2, "c": 3})
	want := []string{"event", "a", "b", "c"}
	if len(fields) != len(want) {
		t.Fatalf("Expected %d fields, got: %d", len(want), len(fields))
	}
	for i, f := range fields {
		if f.Key != want[i] {
			t.Errorf("field %d: expected %s, got %s", i, want[i], f.Key)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{in: "", want: zapcore.InfoLevel},
		{in: "debug", want: zapcore.DebugLevel},
		{in: " WARN ", want: zapcore.WarnLevel},
		{in: "error", want: zapcore.ErrorLevel},
		{in: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestNopLoggerIsSilent(t *testing.T) {
	var log Logger = NopLogger{}
	log.InfoObj("ignored", "ignored", nil)
	if err := log.Sync(); err != nil {
		t.Errorf("Expected nil error, got: %v", err)
	}
}
