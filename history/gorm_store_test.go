package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/quailyquaily/cmdbridge/db"
	"github.com/quailyquaily/cmdbridge/session"
)

func newStore(t *testing.T) *GormStore {
	t.Helper()
	cfg := db.DefaultConfig()
	cfg.DSN = filepath.Join(t.TempDir(), "history.sqlite")
	gdb, err := db.Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(gdb) })
	return NewGormStore(gdb)
}

func TestGormStore_RecordAndList(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Minute)
	zero := 0

	entries := []Entry{
		{SessionID: "s1", TurnID: "t1", Command: "Get-ChildItem", Canonical: "Get-ChildItem", Status: "executed", ExitCode: &zero, Stdout: "a.txt\nb.txt", CreatedAt: base},
		{SessionID: "s1", TurnID: "t2", Command: "Remove-Item x", Status: "rejected", ReasonCode: "NotInAllowlist", CreatedAt: base.Add(time.Second)},
		{SessionID: "s2", TurnID: "t3", Command: "Get-Process", Status: "timed_out", TimedOut: true, Duration: 2 * time.Second, CreatedAt: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s): %v", e.TurnID, err)
		}
	}

	all, err := s.List(ctx, ListOptions{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len=%d, want 3", len(all))
	}
	if all[0].TurnID != "t3" || all[2].TurnID != "t1" {
		t.Fatalf("unexpected order: %s, %s, %s", all[0].TurnID, all[1].TurnID, all[2].TurnID)
	}
	if !all[0].TimedOut || all[0].ExitCode != nil || all[0].Duration != 2*time.Second {
		t.Fatalf("timed out entry mismatch: %+v", all[0])
	}
	if all[2].ExitCode == nil || *all[2].ExitCode != 0 {
		t.Fatalf("exit code not preserved: %+v", all[2].ExitCode)
	}

	s1, err := s.List(ctx, ListOptions{SessionID: "s1", Limit: 1})
	if err != nil {
		t.Fatalf("List(s1): %v", err)
	}
	if len(s1) != 1 || s1[0].TurnID != "t2" || s1[0].ReasonCode != "NotInAllowlist" {
		t.Fatalf("unexpected s1 list: %+v", s1)
	}
}

func TestGormStore_RecordRequiresTurnID(t *testing.T) {
	s := newStore(t)
	if err := s.Record(context.Background(), Entry{SessionID: "s"}); err == nil {
		t.Fatal("expected error without turn id")
	}
}

func TestGormStore_Snapshots(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if _, ok, err := s.LoadSnapshot(ctx, "missing"); err != nil || ok {
		t.Fatalf("LoadSnapshot(missing)=(%v,%v)", ok, err)
	}

	sess, err := session.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveSnapshot(ctx, "s1", sess.Snapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	moved := session.Snapshot{Root: sess.Root(), Current: filepath.Join(sess.Root(), "sub")}
	if err := s.SaveSnapshot(ctx, "s1", moved); err != nil {
		t.Fatalf("SaveSnapshot overwrite: %v", err)
	}
	got, ok, err := s.LoadSnapshot(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("LoadSnapshot=(%v,%v)", ok, err)
	}
	if got != moved {
		t.Fatalf("got %+v, want %+v", got, moved)
	}
}
