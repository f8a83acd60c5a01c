package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"

	"github.com/angelmondragon/carline-backend/pkg/config"
	"github.com/angelmondragon/carline-backend/pkg/db"
	"github.com/angelmondragon/carline-backend/pkg/logger"
	"github.com/angelmondragon/carline-backend/pkg/migrate"
)

type options struct {
	dir     string
	name    string
	version string
}

type command struct {
	needsDB     bool
	destructive bool
	run         func(ctx context.Context, sqlDB *sql.DB, opts options) error
}

var commands = map[string]command{
	"up": {needsDB: true, run: withMigrator(func(ctx context.Context, m *migrate.Migrator, _ options) error {
		res, err := m.Up(ctx)
		printResults(res...)
		return err
	})},
	"down": {needsDB: true, destructive: true, run: withMigrator(func(ctx context.Context, m *migrate.Migrator, _ options) error {
		res, err := m.Down(ctx)
		if res != nil {
			printResults(res)
		}
		return err
	})},
	"version": {needsDB: true, destructive: true, run: withMigrator(func(ctx context.Context, m *migrate.Migrator, opts options) error {
		if opts.version == "" {
			current, err := m.Version(ctx)
			if err == nil {
				fmt.Println("current version:", current)
			}
			return err
		}
		res, err := m.To(ctx, opts.version)
		printResults(res...)
		return err
	})},
	"status": {needsDB: true, run: withMigrator(func(ctx context.Context, m *migrate.Migrator, _ options) error {
		statuses, err := m.Status(ctx)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "VERSION\tSTATE\tAPPLIED AT\tFILE")
		for _, st := range statuses {
			applied := "-"
			if st.State == goose.StateApplied {
				applied = st.AppliedAt.UTC().Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
		}
		return w.Flush()
	})},
	"create": {run: func(_ context.Context, _ *sql.DB, opts options) error {
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(diskDir(opts.dir), opts.name)
		if err == nil {
			fmt.Println("created migration:", path)
		}
		return err
	}},
	"validate": {run: func(_ context.Context, _ *sql.DB, opts options) error {
		fsys, err := migrate.Source(diskDir(opts.dir))
		if err != nil {
			return err
		}
		if err := migrate.Validate(fsys); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	}},
}

func withMigrator(fn func(context.Context, *migrate.Migrator, options) error) func(context.Context, *sql.DB, options) error {
	return func(ctx context.Context, sqlDB *sql.DB, opts options) error {
		fsys, err := migrate.Source(opts.dir)
		if err != nil {
			return err
		}
		m, err := migrate.New(sqlDB, fsys)
		if err != nil {
			return err
		}
		return fn(ctx, m, opts)
	}
}

func printResults(results ...*goose.MigrationResult) {
	for _, r := range results {
		if r == nil {
			continue
		}
		fmt.Printf("%-4s %s (%s)\n", r.Direction, r.Source.Path, r.Duration.Round(time.Millisecond))
	}
}

// diskDir resolves the source-tree directory for commands that touch files.
func diskDir(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func commandNames() string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, "|")
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmdName := flag.String("cmd", "up", "migration command: "+commandNames())
	var opts options
	flag.StringVar(&opts.dir, "dir", "", "migrations directory (default: migrations embedded in the binary; "+migrate.DefaultDir+" for create/validate)")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version; empty prints the current version")
	force := flag.Bool("force", false, "allow down/version against a production database")
	flag.Parse()

	cmd, ok := commands[*cmdName]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown -cmd value %q (want %s)\n", *cmdName, commandNames())
		os.Exit(2)
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmdName,
		"dir": opts.dir,
	})

	if cmd.destructive && cfg.App.IsProd() && !*force {
		logg.Warn(ctx, "refusing destructive migration in production without -force")
		os.Exit(1)
	}

	var sqlDB *sql.DB
	if cmd.needsDB {
		dbClient, err := db.New(ctx, cfg.DB, logg)
		requireResource(ctx, logg, "database", err)
		defer dbClient.Close()

		sqlDB, err = dbClient.SQL()
		requireResource(ctx, logg, "sql database", err)
	}

	if err := cmd.run(ctx, sqlDB, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		fmt.Fprintf(os.Stderr, "migrate %s failed: %v\n", *cmdName, err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
