package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/google/uuid"
)

const (
	// fileLayout sorts lexically in time order.
	fileLayout = "20060102T150405.000000000Z"
	fileExt    = ".json"
	filePerm   = 0644
	dirPerm    = 0755

	maxNameCollisions = 1000
)

// Repository is a file-based snapshot archive: one directory per floor plan,
// one immutable JSON file per committed version.
type Repository struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewRepository creates the backup root directory if needed.
func NewRepository(dir string, logger *slog.Logger) (*Repository, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory %s: %w", dir, err)
	}
	return &Repository{
		dir:    dir,
		logger: logger.With("component", "snapshot_repository"),
		now:    time.Now,
	}, nil
}

// Write stores snap in a new file named after the current UTC time. Existing
// files are never overwritten; a name collision moves the name forward by 1ns.
func (r *Repository) Write(ctx context.Context, floorPlanID uuid.UUID, snap domain.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	planDir := r.planDir(floorPlanID)
	if err := os.MkdirAll(planDir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory %s: %w", planDir, err)
	}

	ts := r.now().UTC()
	for i := 0; i < maxNameCollisions; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path := filepath.Join(planDir, ts.Format(fileLayout)+fileExt)
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if errors.Is(err, fs.ErrExist) {
			ts = ts.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create snapshot file %s: %w", path, err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(path)
			return "", fmt.Errorf("failed to write snapshot file %s: %w", path, err)
		}
		if err := f.Sync(); err != nil {
			r.logger.Error("Failed to sync snapshot file", "path", path, "error", err)
		}
		if err := f.Close(); err != nil {
			return "", fmt.Errorf("failed to close snapshot file %s: %w", path, err)
		}
		r.logger.Info("Snapshot written", "floor_plan_id", floorPlanID, "path", path)
		return path, nil
	}
	return "", fmt.Errorf("failed to pick a free snapshot name in %s after %d attempts", planDir, maxNameCollisions)
}

// Latest decodes the newest snapshot of a floor plan. Any failure, including an
// empty or missing directory, is reported as domain.ErrNoBackup.
func (r *Repository) Latest(ctx context.Context, floorPlanID uuid.UUID) (*domain.Snapshot, error) {
	files, err := r.sortedFiles(floorPlanID)
	if err != nil {
		r.logger.Warn("Failed to list snapshots", "floor_plan_id", floorPlanID, "error", err)
		return nil, domain.ErrNoBackup
	}
	if len(files) == 0 {
		r.logger.Info("No snapshots found", "floor_plan_id", floorPlanID)
		return nil, domain.ErrNoBackup
	}

	latest := files[len(files)-1]
	data, err := os.ReadFile(latest)
	if err != nil {
		r.logger.Error("Failed to read latest snapshot", "path", latest, "error", err)
		return nil, domain.ErrNoBackup
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		r.logger.Error("Failed to decode latest snapshot", "path", latest, "error", err)
		return nil, domain.ErrNoBackup
	}
	return &snap, nil
}

// List describes the snapshot files of a floor plan, newest first.
func (r *Repository) List(ctx context.Context, floorPlanID uuid.UUID) ([]domain.SnapshotFile, error) {
	files, err := r.sortedFiles(floorPlanID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SnapshotFile, 0, len(files))
	for i := len(files) - 1; i >= 0; i-- {
		path := files[i]
		info, err := os.Stat(path)
		if err != nil {
			r.logger.Warn("Failed to stat snapshot, skipping", "path", path, "error", err)
			continue
		}
		name := filepath.Base(path)
		writtenAt, _ := time.Parse(fileLayout, strings.TrimSuffix(name, fileExt))
		out = append(out, domain.SnapshotFile{
			Name:      name,
			Path:      path,
			WrittenAt: writtenAt,
			Size:      info.Size(),
		})
	}
	return out, nil
}

func (r *Repository) planDir(floorPlanID uuid.UUID) string {
	return filepath.Join(r.dir, floorPlanID.String())
}

// sortedFiles returns snapshot paths oldest first. A missing directory is empty.
func (r *Repository) sortedFiles(floorPlanID uuid.UUID) ([]string, error) {
	entries, err := os.ReadDir(r.planDir(floorPlanID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), fileExt) {
			files = append(files, filepath.Join(r.planDir(floorPlanID), entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
