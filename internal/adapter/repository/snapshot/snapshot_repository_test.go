package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

func setupTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create Repository: %v", err)
	}
	return repo
}

func testSnapshot(name string) domain.Snapshot {
	return domain.Snapshot{
		FloorPlan: domain.SnapshotFloorPlan{ID: uuid.NewString(), Name: name, Width: 800, Height: 600, MapData: json.RawMessage(`{"layer":1}`)},
		Rooms: []domain.SnapshotRoom{
			{ID: uuid.NewString(), Name: "Atlas", Capacity: "6", Features: []string{"tv"}, X: 1, Y: 2, Width: 100, Height: 50},
		},
	}
}

func TestSnapshot_WriteAndLatest(t *testing.T) {
	repo := setupTestRepository(t)
	fpID := uuid.New()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	for _, name := range []string{"v1", "v2", "v3"} {
		if _, err := repo.Write(context.Background(), fpID, testSnapshot(name)); err != nil {
			t.Fatalf("failed to write snapshot %s: %v", name, err)
		}
	}

	latest, err := repo.Latest(context.Background(), fpID)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest.FloorPlan.Name != "v3" {
		t.Errorf("expected newest snapshot v3, got %s", latest.FloorPlan.Name)
	}
	if len(latest.Rooms) != 1 || latest.Rooms[0].Name != "Atlas" {
		t.Errorf("rooms did not round-trip: %+v", latest.Rooms)
	}
}

func TestSnapshot_NameCollisionNeverOverwrites(t *testing.T) {
	repo := setupTestRepository(t)
	fpID := uuid.New()

	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return frozen }

	var paths []string
	for _, name := range []string{"first", "second", "third"} {
		path, err := repo.Write(context.Background(), fpID, testSnapshot(name))
		if err != nil {
			t.Fatalf("failed to write snapshot: %v", err)
		}
		paths = append(paths, path)
	}

	seen := map[string]bool{}
	for _, p := range paths {
		if seen[p] {
			t.Fatalf("path %s was written twice", p)
		}
		seen[p] = true
	}

	files, err := repo.List(context.Background(), fpID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}

	data, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("failed to read first snapshot: %v", err)
	}
	var first domain.Snapshot
	if err := json.Unmarshal(data, &first); err != nil {
		t.Fatalf("failed to decode first snapshot: %v", err)
	}
	if first.FloorPlan.Name != "first" {
		t.Errorf("first snapshot was overwritten, now %s", first.FloorPlan.Name)
	}

	latest, err := repo.Latest(context.Background(), fpID)
	if err != nil {
		t.Fatalf("Latest returned error: %v", err)
	}
	if latest.FloorPlan.Name != "third" {
		t.Errorf("expected third as latest, got %s", latest.FloorPlan.Name)
	}
}

func TestSnapshot_LatestWithoutBackup(t *testing.T) {
	repo := setupTestRepository(t)

	t.Run("missing directory", func(t *testing.T) {
		_, err := repo.Latest(context.Background(), uuid.New())
		if !errors.Is(err, domain.ErrNoBackup) {
			t.Errorf("expected ErrNoBackup, got %v", err)
		}
	})

	t.Run("unreadable newest file", func(t *testing.T) {
		fpID := uuid.New()
		dir := filepath.Join(repo.dir, fpID.String())
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "20240101T000000.000000000Z.json"), []byte("{not json"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := repo.Latest(context.Background(), fpID)
		if !errors.Is(err, domain.ErrNoBackup) {
			t.Errorf("expected ErrNoBackup, got %v", err)
		}
	})
}

func TestSnapshot_ListNewestFirst(t *testing.T) {
	repo := setupTestRepository(t)
	fpID := uuid.New()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Minute)
		repo.now = func() time.Time { return ts }
		if _, err := repo.Write(context.Background(), fpID, testSnapshot("v")); err != nil {
			t.Fatal(err)
		}
	}

	files, err := repo.List(context.Background(), fpID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(files) != 3 {
		t.Fatalf("expected 3 files, got %d", len(files))
	}
	if !files[0].WrittenAt.Equal(base.Add(2 * time.Minute)) {
		t.Errorf("expected newest first, got %s", files[0].WrittenAt)
	}
	if files[0].Size == 0 {
		t.Error("expected non-zero file size")
	}
}
