package types

import (
	"errors"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "mysql", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data", Project: "billing"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "unknown sync strategy returns ErrSyncStrategyUnknown",
			config:  Config{Backend: "sqlite", Sync: SyncConfig{Strategy: "eventually"}},
			wantErr: ErrSyncStrategyUnknown,
		},
		{
			name:    "valid batch sync config",
			config:  Config{Backend: "sqlite", Sync: SyncConfig{Strategy: SyncBatch, BatchSize: 10, BatchIntervalMS: 500}},
			wantErr: nil,
		},
		{
			name:    "negative batch size returns ErrBatchSizeInvalid",
			config:  Config{Backend: "sqlite", Sync: SyncConfig{Strategy: SyncBatch, BatchSize: -1}},
			wantErr: ErrBatchSizeInvalid,
		},
		{
			name:    "negative batch interval returns ErrBatchIntervalInvalid",
			config:  Config{Backend: "sqlite", Sync: SyncConfig{Strategy: SyncBatch, BatchIntervalMS: -100}},
			wantErr: ErrBatchIntervalInvalid,
		},
		{
			name:    "negative window days returns ErrWindowDaysInvalid",
			config:  Config{Backend: "sqlite", WindowDays: -7},
			wantErr: ErrWindowDaysInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSyncConfigDefaults(t *testing.T) {
	var sc SyncConfig

	if got := sc.GetStrategy(); got != SyncImmediate {
		t.Fatalf("expected default strategy %q, got %q", SyncImmediate, got)
	}
	if got := sc.GetBatchSize(); got != DefaultBatchSize {
		t.Fatalf("expected default batch size %d, got %d", DefaultBatchSize, got)
	}
	if got := sc.GetBatchIntervalMS(); got != DefaultBatchIntervalMS {
		t.Fatalf("expected default batch interval %d, got %d", DefaultBatchIntervalMS, got)
	}

	sc = SyncConfig{Strategy: SyncBatch, BatchSize: 5, BatchIntervalMS: 250}
	if got := sc.GetStrategy(); got != SyncBatch {
		t.Fatalf("expected strategy %q, got %q", SyncBatch, got)
	}
	if got := sc.GetBatchSize(); got != 5 {
		t.Fatalf("expected batch size 5, got %d", got)
	}
	if got := sc.GetBatchIntervalMS(); got != 250 {
		t.Fatalf("expected batch interval 250, got %d", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config

	if got := cfg.GetWindowDays(); got != DefaultWindowDays {
		t.Fatalf("expected default window %d, got %d", DefaultWindowDays, got)
	}
	if got := cfg.GetListenAddr(); got != DefaultListenAddr {
		t.Fatalf("expected default listen addr %q, got %q", DefaultListenAddr, got)
	}

	cfg = Config{WindowDays: 90, ListenAddr: "127.0.0.1:9000"}
	if got := cfg.GetWindowDays(); got != 90 {
		t.Fatalf("expected window 90, got %d", got)
	}
	if got := cfg.GetListenAddr(); got != "127.0.0.1:9000" {
		t.Fatalf("expected listen addr 127.0.0.1:9000, got %q", got)
	}
}
