package archive

import (
	"testing"

	"ciportal/api/internal/store"
)

func TestSnapshotAndHistory(t *testing.T) {
	svc := New(t.TempDir())

	first := store.Profile{Name: "Asha Kumar", NationalID: "123456789012"}
	if _, err := svc.Snapshot("app_1", first, "Asha Kumar", "submitted"); err != nil {
		t.Fatalf("first snapshot: %v", err)
	}

	second := first
	second.BankName = "State Bank"
	info, err := svc.Snapshot("app_1", second, "Admin", "approved")
	if err != nil {
		t.Fatalf("second snapshot: %v", err)
	}
	if info.Author != "Admin" || info.Message != "approved" {
		t.Fatalf("commit info = %+v", info)
	}

	history, err := svc.History("app_1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
	if history[0].Message != "approved" || history[1].Message != "submitted" {
		t.Fatalf("history order wrong: %v", history)
	}
}

func TestProfileAtRecoversSnapshot(t *testing.T) {
	svc := New(t.TempDir())

	submitted := store.Profile{Name: "Asha Kumar", BankName: "Old Bank"}
	if _, err := svc.Snapshot("app_2", submitted, "Asha Kumar", "submitted"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	changed := submitted
	changed.BankName = "New Bank"
	if _, err := svc.Snapshot("app_2", changed, "Asha Kumar", "updated"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	history, err := svc.History("app_2", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}

	recovered, err := svc.ProfileAt("app_2", history[1].Hash)
	if err != nil {
		t.Fatalf("profile at %s: %v", history[1].Hash, err)
	}
	if recovered.BankName != "Old Bank" {
		t.Fatalf("recovered bank = %q, want %q", recovered.BankName, "Old Bank")
	}
}

func TestHistoryForUnknownApplication(t *testing.T) {
	svc := New(t.TempDir())

	history, err := svc.History("missing", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %v", history)
	}
}

func TestIdenticalSnapshotsStillCommit(t *testing.T) {
	svc := New(t.TempDir())

	profile := store.Profile{Name: "Asha Kumar"}
	if _, err := svc.Snapshot("app_3", profile, "Asha Kumar", "submitted"); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if _, err := svc.Snapshot("app_3", profile, "Admin", "approved"); err != nil {
		t.Fatalf("empty-diff snapshot: %v", err)
	}

	history, err := svc.History("app_3", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d entries, want 2", len(history))
	}
}
