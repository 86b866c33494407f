package layout

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/odvcencio/oriel/pkg/compositor"
)

func TestSaveAndLoad(t *testing.T) {
	store := setupTestStore(t)
	defer cleanupTestStore(store)
	ctx := context.Background()

	if err := store.Save(ctx, "default", sampleLayouts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(ctx, "default")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Load() returned %d layouts, want 3", len(got))
	}

	// Back to front: normal tier by z, then the always-on-top tier.
	wantOrder := []string{"w-editor", "w-log", "w-status"}
	for i, id := range wantOrder {
		if got[i].WindowID != id {
			t.Errorf("Load()[%d].WindowID = %s, want %s", i, got[i].WindowID, id)
		}
	}

	status := got[2]
	if status.Title != "status" {
		t.Errorf("Title = %s, want status", status.Title)
	}
	if status.X != 0 || status.Y != 22 || status.Width != 80 || status.Height != 2 {
		t.Errorf("bounds = (%d,%d %dx%d), want (0,22 80x2)", status.X, status.Y, status.Width, status.Height)
	}
	if !status.AlwaysOnTop {
		t.Error("AlwaysOnTop = false, want true")
	}
	if !got[1].Focused {
		t.Error("Focused = false, want true for w-log")
	}
	if !got[1].Hidden {
		t.Error("Hidden = false, want true for w-log")
	}
}

func TestLoadUnknownSession(t *testing.T) {
	store := setupTestStore(t)
	defer cleanupTestStore(store)

	got, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() returned %d layouts, want 0", len(got))
	}
}

func TestSaveReplacesSession(t *testing.T) {
	store := setupTestStore(t)
	defer cleanupTestStore(store)
	ctx := context.Background()

	if err := store.Save(ctx, "default", sampleLayouts()); err != nil {
		t.Fatalf("First Save() error = %v", err)
	}

	replacement := []WindowLayout{
		{WindowID: "w-solo", Title: "solo", X: 4, Y: 4, Width: 30, Height: 8, Z: 7},
	}
	if err := store.Save(ctx, "default", replacement); err != nil {
		t.Fatalf("Second Save() error = %v", err)
	}

	got, err := store.Load(ctx, "default")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Load() returned %d layouts, want 1 after replace", len(got))
	}
	if got[0].WindowID != "w-solo" {
		t.Errorf("WindowID = %s, want w-solo", got[0].WindowID)
	}
	if got[0].Z != 7 {
		t.Errorf("Z = %d, want 7", got[0].Z)
	}
}

func TestSaveEmptySetDeletesSession(t *testing.T) {
	store := setupTestStore(t)
	defer cleanupTestStore(store)
	ctx := context.Background()

	if err := store.Save(ctx, "default", sampleLayouts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save(ctx, "default", nil); err != nil {
		t.Fatalf("Save(empty) error = %v", err)
	}

	got, err := store.Load(ctx, "default")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() returned %d layouts, want 0 after empty save", len(got))
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("Sessions() = %v, want none after empty save", sessions)
	}
}

func TestSaveRequiresSessionName(t *testing.T) {
	store := setupTestStore(t)
	defer cleanupTestStore(store)

	if err := store.Save(context.Background(), "", sampleLayouts()); err == nil {
		t.Error("Save() with empty session = nil, want error")
	}
}

func TestSessions(t *testing.T) {
	store := setupTestStore(t)
	defer cleanupTestStore(store)
	ctx := context.Background()

	if err := store.Save(ctx, "work", sampleLayouts()[:1]); err != nil {
		t.Fatalf("Save(work) error = %v", err)
	}
	if err := store.Save(ctx, "demo", sampleLayouts()[:1]); err != nil {
		t.Fatalf("Save(demo) error = %v", err)
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 2 || sessions[0] != "demo" || sessions[1] != "work" {
		t.Errorf("Sessions() = %v, want [demo work]", sessions)
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	defer cleanupTestStore(store)
	ctx := context.Background()

	if err := store.Save(ctx, "work", sampleLayouts()); err != nil {
		t.Fatalf("Save(work) error = %v", err)
	}
	if err := store.Save(ctx, "demo", sampleLayouts()[:1]); err != nil {
		t.Fatalf("Save(demo) error = %v", err)
	}

	if err := store.Delete(ctx, "work"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, err := store.Load(ctx, "work")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Load() returned %d layouts, want 0 after delete", len(got))
	}

	sessions, err := store.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() error = %v", err)
	}
	if len(sessions) != 1 || sessions[0] != "demo" {
		t.Errorf("Sessions() = %v, want [demo]", sessions)
	}
}

func TestClosedStoreRejectsOperations(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Second Close() error = %v", err)
	}

	if err := store.Save(ctx, "default", nil); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Save() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Load(ctx, "default"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Load() after close error = %v, want ErrStoreClosed", err)
	}
	if _, err := store.Sessions(ctx); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Sessions() after close error = %v, want ErrStoreClosed", err)
	}
	if err := store.Delete(ctx, "default"); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Delete() after close error = %v, want ErrStoreClosed", err)
	}
}

func TestReopenPersists(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "layouts.db")
	ctx := context.Background()

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := store.Save(ctx, "default", sampleLayouts()); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Reopen error = %v", err)
	}
	defer cleanupTestStore(reopened)

	got, err := reopened.Load(ctx, "default")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("Load() returned %d layouts after reopen, want 3", len(got))
	}
}

func TestOpenInMemory(t *testing.T) {
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	defer cleanupTestStore(store)

	ctx := context.Background()
	if err := store.Save(ctx, "default", sampleLayouts()[:1]); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := store.Load(ctx, "default")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("Load() returned %d layouts, want 1", len(got))
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") = nil, want error")
	}
}

func TestSnapshotRestore(t *testing.T) {
	comp := compositor.New(80, 24)
	editor := comp.AddWindow("editor", compositor.Rect{X: 0, Y: 0, Width: 60, Height: 20}, nil)
	logw := comp.AddWindow("log", compositor.Rect{X: 10, Y: 5, Width: 40, Height: 10}, nil)
	status := comp.AddWindow("status", compositor.Rect{X: 0, Y: 22, Width: 80, Height: 2}, nil)
	comp.SetAlwaysOnTop(status, true)
	comp.SetHidden(logw, true)
	comp.SetFocus(editor)

	layouts := Snapshot(comp)
	if len(layouts) != 3 {
		t.Fatalf("Snapshot() returned %d layouts, want 3", len(layouts))
	}
	if !layouts[0].Focused {
		t.Error("editor Focused = false, want true")
	}
	if !layouts[1].Hidden {
		t.Error("log Hidden = false, want true")
	}
	if !layouts[2].AlwaysOnTop {
		t.Error("status AlwaysOnTop = false, want true")
	}
	if layouts[1].X != 10 || layouts[1].Y != 5 || layouts[1].Width != 40 || layouts[1].Height != 10 {
		t.Errorf("log bounds = (%d,%d %dx%d), want (10,5 40x10)",
			layouts[1].X, layouts[1].Y, layouts[1].Width, layouts[1].Height)
	}

	restored := compositor.New(80, 24)
	windows := Restore(restored, layouts, nil)
	if len(windows) != 3 {
		t.Fatalf("Restore() returned %d windows, want 3", len(windows))
	}
	for i, w := range windows {
		l := layouts[i]
		b := w.Bounds()
		if w.Title() != l.Title {
			t.Errorf("window %d Title = %s, want %s", i, w.Title(), l.Title)
		}
		if b.X != l.X || b.Y != l.Y || b.Width != l.Width || b.Height != l.Height {
			t.Errorf("window %d bounds = (%d,%d %dx%d), want (%d,%d %dx%d)",
				i, b.X, b.Y, b.Width, b.Height, l.X, l.Y, l.Width, l.Height)
		}
		if w.Z() != l.Z {
			t.Errorf("window %d Z = %d, want %d", i, w.Z(), l.Z)
		}
		if w.AlwaysOnTop() != l.AlwaysOnTop {
			t.Errorf("window %d AlwaysOnTop = %v, want %v", i, w.AlwaysOnTop(), l.AlwaysOnTop)
		}
		if w.Hidden() != l.Hidden {
			t.Errorf("window %d Hidden = %v, want %v", i, w.Hidden(), l.Hidden)
		}
	}
	focused := restored.Focused()
	if focused == nil || focused.Title() != "editor" {
		t.Errorf("Focused() = %v, want the editor window", focused)
	}
}

func TestRestorePainters(t *testing.T) {
	comp := compositor.New(40, 12)
	layouts := []WindowLayout{
		{WindowID: "w-a", Title: "a", X: 0, Y: 0, Width: 10, Height: 4, Z: 0},
		{WindowID: "w-b", Title: "b", X: 2, Y: 2, Width: 10, Height: 4, Z: 1},
	}

	var painted []string
	Restore(comp, layouts, func(l WindowLayout) compositor.Painter {
		painted = append(painted, l.WindowID)
		return compositor.PainterFunc(func(g *compositor.Grid, clip compositor.Rect) {})
	})

	if len(painted) != 2 || painted[0] != "w-a" || painted[1] != "w-b" {
		t.Errorf("painterFor saw %v, want [w-a w-b]", painted)
	}

	consumed, _, changed := comp.ComposeFrame()
	if !changed {
		t.Error("ComposeFrame() changed = false, want true after restore")
	}
	comp.AbandonFrame(consumed)
}

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "layouts.db")
	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	return store
}

func cleanupTestStore(store *Store) {
	if store != nil {
		store.Close()
	}
}

func sampleLayouts() []WindowLayout {
	return []WindowLayout{
		{WindowID: "w-editor", Title: "editor", X: 0, Y: 0, Width: 60, Height: 20, Z: 1},
		{WindowID: "w-log", Title: "log", X: 10, Y: 5, Width: 40, Height: 10, Z: 2, Hidden: true, Focused: true},
		{WindowID: "w-status", Title: "status", X: 0, Y: 22, Width: 80, Height: 2, Z: 0, AlwaysOnTop: true},
	}
}
