// Command restore lists the disk snapshots of a floor plan or restores the
// floor plan from its newest snapshot, without going through the API.
//
//	restore list -floor-plan <id>
//	restore apply -floor-plan <id> -company <id> -user <id>
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/floor-sync/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/floor-sync/internal/adapter/repository/redis"
	"github.com/V4T54L/floor-sync/internal/adapter/repository/snapshot"
	"github.com/V4T54L/floor-sync/internal/domain"
	"github.com/V4T54L/floor-sync/internal/pkg/config"
	"github.com/V4T54L/floor-sync/internal/pkg/logger"
	"github.com/V4T54L/floor-sync/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "restore:", err)
		os.Exit(1)
	}
}

type options struct {
	floorPlanID uuid.UUID
	companyID   uuid.UUID
	userID      uuid.UUID
	snapshotDir string
}

func parseOptions(cmd string, args []string) (options, error) {
	fs := flag.NewFlagSet(cmd, flag.ContinueOnError)
	floorPlan := fs.String("floor-plan", "", "Floor plan id")
	company := fs.String("company", "", "Company id owning the floor plan (apply)")
	user := fs.String("user", "", "Administrator recorded as committer (apply)")
	dir := fs.String("dir", "", "Snapshot directory, overrides SNAPSHOT_DIR")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	var opts options
	var err error
	if opts.floorPlanID, err = uuid.Parse(*floorPlan); err != nil {
		return options{}, fmt.Errorf("-floor-plan must be a UUID: %w", err)
	}
	if cmd == "apply" {
		if opts.companyID, err = uuid.Parse(*company); err != nil {
			return options{}, fmt.Errorf("-company must be a UUID: %w", err)
		}
		if opts.userID, err = uuid.Parse(*user); err != nil {
			return options{}, fmt.Errorf("-user must be a UUID: %w", err)
		}
	}
	opts.snapshotDir = *dir
	return opts, nil
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: restore list|apply -floor-plan <id> [-company <id> -user <id>] [-dir <path>]")
	}
	cmd := args[0]
	if cmd != "list" && cmd != "apply" {
		return fmt.Errorf("unknown command %q", cmd)
	}
	opts, err := parseOptions(cmd, args[1:])
	if err != nil {
		return err
	}

	if cmd == "list" {
		dir := opts.snapshotDir
		if dir == "" {
			dir = os.Getenv("SNAPSHOT_DIR")
		}
		if dir == "" {
			dir = "./backups"
		}
		snaps, err := snapshot.NewRepository(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
		if err != nil {
			return err
		}
		return list(ctx, snaps, opts.floorPlanID, out)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.snapshotDir != "" {
		cfg.SnapshotDir = opts.snapshotDir
	}
	log := logger.New(cfg.LogLevel)

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisAddr)
	if err != nil {
		return fmt.Errorf("failed to parse redis url: %w", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	snaps, err := snapshot.NewRepository(cfg.SnapshotDir, log)
	if err != nil {
		return err
	}
	repo := postgres.NewFloorPlanRepository(db, postgres.NewCommitterRoleCache(db, log, 0, nil), log)
	cache := redisrepo.NewCacheRepository(redisClient, log, nil)
	broker := redisrepo.NewEventBroker(redisClient, cfg.LiveFeedChannel, log, nil)
	effects := usecase.NewSideEffectQueue(snaps, broker, log, nil, 0)
	defer effects.Close()

	engine := usecase.NewSyncEngine(repo, snaps, cache, effects,
		usecase.RetryPolicy{MaxAttempts: cfg.CommitMaxAttempts, Backoff: cfg.CommitBackoff}, log, nil)
	admin := domain.Principal{UserID: opts.userID, TenantID: opts.companyID, Role: domain.RoleAdmin}
	return apply(ctx, engine, admin, opts.floorPlanID, out)
}

func list(ctx context.Context, snaps domain.SnapshotRepository, floorPlanID uuid.UUID, out io.Writer) error {
	files, err := snaps.List(ctx, floorPlanID)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return domain.ErrNoBackup
	}
	for _, f := range files {
		fmt.Fprintf(out, "%s\t%d\t%s\n", f.WrittenAt.Format("2006-01-02T15:04:05.000Z07:00"), f.Size, f.Path)
	}
	return nil
}

type restorer interface {
	Restore(ctx context.Context, p domain.Principal, floorPlanID uuid.UUID) (*domain.FloorPlan, error)
}

func apply(ctx context.Context, engine restorer, admin domain.Principal, floorPlanID uuid.UUID, out io.Writer) error {
	fp, err := engine.Restore(ctx, admin, floorPlanID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(fp)
}
