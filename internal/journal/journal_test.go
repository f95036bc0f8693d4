package journal

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// tick makes the store's clock advance one second per call.
func tick(store *Store) {
	base := time.Unix(1_700_000_000, 0)
	n := 0
	store.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "journal.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("journal file not created: %v", err)
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") should fail")
	}
}

func TestStore_SchemaAndWAL(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	v, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if v != LatestSchemaVersion {
		t.Errorf("SchemaVersion() = %d, want %d", v, LatestSchemaVersion)
	}

	var mode string
	if err := store.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("PRAGMA journal_mode: %v", err)
	}
	if mode != "wal" {
		t.Errorf("journal_mode = %s, want wal", mode)
	}
}

func TestStore_ReopenKeepsData(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	id, err := store.Begin(ctx, "tcp", "127.0.0.1:1")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := store.Record(ctx, id, "FORWARD 10", true); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	store.Close()

	store, err = Open(dbPath)
	if err != nil {
		t.Fatalf("re-Open() error = %v", err)
	}
	defer store.Close()

	entries, err := store.Entries(ctx, id)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Line != "FORWARD 10" {
		t.Errorf("Entries() = %+v, want one FORWARD 10", entries)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	tick(store)
	ctx := context.Background()

	id, err := store.Begin(ctx, "exe-script", "python3 -u drawing.py")
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	lines := []string{"PENDOWN", "FORWARD 100", "RIGHT 90", "QUIT"}
	for i, line := range lines {
		if err := store.Record(ctx, id, line, i != 2); err != nil {
			t.Fatalf("Record(%q) error = %v", line, err)
		}
	}
	if err := store.End(ctx, id); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	entries, err := store.Entries(ctx, id)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != len(lines) {
		t.Fatalf("got %d entries, want %d", len(entries), len(lines))
	}
	for i, e := range entries {
		if e.Seq != i+1 {
			t.Errorf("entries[%d].Seq = %d, want %d", i, e.Seq, i+1)
		}
		if e.Line != lines[i] {
			t.Errorf("entries[%d].Line = %q, want %q", i, e.Line, lines[i])
		}
		if e.Sent != (i != 2) {
			t.Errorf("entries[%d].Sent = %v", i, e.Sent)
		}
	}
	if entries[1].TsUnixMs <= entries[0].TsUnixMs {
		t.Errorf("timestamps not increasing: %d then %d", entries[0].TsUnixMs, entries[1].TsUnixMs)
	}

	sess, err := store.GetSession(ctx, id)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if sess.Strategy != "exe-script" || sess.Target != "python3 -u drawing.py" {
		t.Errorf("GetSession() = %+v", sess)
	}
	if sess.EntryCount != len(lines) {
		t.Errorf("EntryCount = %d, want %d", sess.EntryCount, len(lines))
	}
	if sess.EndedAtUnixMs <= sess.StartedAtUnixMs {
		t.Errorf("EndedAtUnixMs = %d, StartedAtUnixMs = %d", sess.EndedAtUnixMs, sess.StartedAtUnixMs)
	}
}

func TestStore_SequencesArePerSession(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	a, _ := store.Begin(ctx, "tcp", "a")
	b, _ := store.Begin(ctx, "tcp", "b")

	for _, step := range []struct{ id, line string }{
		{a, "FORWARD 1"}, {b, "FORWARD 2"}, {a, "FORWARD 3"},
	} {
		if err := store.Record(ctx, step.id, step.line, true); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	entries, err := store.Entries(ctx, a)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Seq != 1 || entries[1].Seq != 2 {
		t.Errorf("session a entries = %+v", entries)
	}

	entries, err = store.Entries(ctx, b)
	if err != nil {
		t.Fatalf("Entries() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Seq != 1 {
		t.Errorf("session b entries = %+v", entries)
	}
}

func TestStore_ListSessions(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	tick(store)
	ctx := context.Background()

	var ids []string
	for _, target := range []string{"first", "second", "third"} {
		id, err := store.Begin(ctx, "tcp", target)
		if err != nil {
			t.Fatalf("Begin() error = %v", err)
		}
		ids = append(ids, id)
	}
	_ = store.Record(ctx, ids[1], "PENUP", true)

	all, err := store.ListSessions(ctx, 0)
	if err != nil {
		t.Fatalf("ListSessions() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListSessions(0) returned %d, want 3", len(all))
	}
	if all[0].Target != "third" || all[2].Target != "first" {
		t.Errorf("ListSessions order = %s, %s, %s", all[0].Target, all[1].Target, all[2].Target)
	}
	if all[1].EntryCount != 1 || all[0].EntryCount != 0 {
		t.Errorf("entry counts = %d, %d", all[0].EntryCount, all[1].EntryCount)
	}
	if all[0].EndedAtUnixMs != 0 {
		t.Errorf("open session EndedAtUnixMs = %d, want 0", all[0].EndedAtUnixMs)
	}

	limited, err := store.ListSessions(ctx, 2)
	if err != nil {
		t.Fatalf("ListSessions(2) error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("ListSessions(2) returned %d, want 2", len(limited))
	}
}

func TestStore_UnknownSession(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.End(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("End() error = %v, want ErrSessionNotFound", err)
	}
	if err := store.Record(ctx, "missing", "FORWARD 1", true); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Record() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Entries(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Entries() error = %v, want ErrSessionNotFound", err)
	}
	if _, err := store.GetSession(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestStore_EmptySessionID(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, "", "FORWARD 1", true); err == nil {
		t.Error("Record() with empty id should fail")
	}
	if err := store.End(ctx, ""); err == nil {
		t.Error("End() with empty id should fail")
	}
}

func TestStore_CloseIdempotent(t *testing.T) {
	t.Parallel()

	store, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
