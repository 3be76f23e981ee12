package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/marshallshelly/storefront/cmd/storefront/output"
	"github.com/marshallshelly/storefront/pkg/migration"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/spf13/cobra"
)

var (
	// Migrate flags
	dryRun        bool
	steps         int
	migrationsDir string
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long: `Apply or roll back the storefront schema compiled into this binary,
followed by any local migrations found in --dir.

Subcommands:
  up      - Apply pending migrations
  down    - Rollback migrations
  status  - Show migration status
  create  - Create an empty local migration`,
}

// migrateCreateCmd scaffolds a local migration
var migrateCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create an empty local migration",
	Long: `Create an empty up/down migration pair in --dir, numbered after the
compiled schema and any migrations already in the directory.

Examples:
  storefront migrate create add_wishlist --dir ./migrations`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if migrationsDir == "" {
			return fmt.Errorf("--dir is required")
		}
		base, err := migration.Embedded().LoadAll()
		if err != nil {
			return err
		}
		file, err := migration.NewGenerator(migrationsDir).GenerateEmpty(args[0], base)
		if err != nil {
			return err
		}
		output.Success("Created migration %s", file.Version)
		output.Muted("  %s", file.UpPath)
		output.Muted("  %s", file.DownPath)
		return nil
	},
}

// migrateUpCmd applies pending migrations
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply pending migrations.

Examples:
  storefront migrate up                # Apply all pending migrations
  storefront migrate up --dry-run      # Preview migrations without applying`,
	RunE: withStore(runMigrateUp),
}

// migrateDownCmd rolls back migrations
var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rollback migrations",
	Long: `Rollback applied migrations, newest first.

Examples:
  storefront migrate down --steps 1    # Rollback last migration`,
	RunE: withStore(runMigrateDown),
}

// migrateStatusCmd shows migration status
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  withStore(runMigrateStatus),
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd, migrateCreateCmd)

	migrateCmd.PersistentFlags().StringVar(&migrationsDir, "dir", "", "Directory of local migrations")

	migrateUpCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview migrations without applying")
	migrateDownCmd.Flags().IntVar(&steps, "steps", 1, "Number of migrations to rollback")
}

func prepareMigrations(ctx context.Context, st *store.Store) (*migration.Executor, []migration.Migration, error) {
	executor := migration.NewExecutor(st.Session())
	if err := executor.Initialize(ctx); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize migrations: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return executor, migrations, nil
}

// loadMigrations returns the compiled schema followed by --dir.
func loadMigrations() ([]migration.Migration, error) {
	embedded, err := migration.Embedded().LoadAll()
	if err != nil {
		return nil, err
	}
	if migrationsDir == "" {
		return embedded, nil
	}
	local, err := migration.NewGenerator(migrationsDir).Source().LoadAll()
	if err != nil {
		return nil, err
	}
	return migration.Merge(embedded, local)
}

func runMigrateUp(ctx context.Context, st *store.Store, _ []string) error {
	executor, migrations, err := prepareMigrations(ctx, st)
	if err != nil {
		return err
	}

	if dryRun {
		status, err := executor.GetStatus(ctx, migrations)
		if err != nil {
			return fmt.Errorf("failed to get migration status: %w", err)
		}
		output.Section("DRY RUN - Preview")
		pending := 0
		for _, record := range status {
			if record.Status != migration.StatusApplied {
				fmt.Printf("  %s %s - %s\n", output.StatusIcon("pending"), record.Version, record.Name)
				pending++
			}
		}
		if pending == 0 {
			output.Info("No pending migrations")
		}
		return nil
	}

	if err := executor.Lock(ctx); err != nil {
		return err
	}
	defer func() { _ = executor.Unlock(ctx) }()

	output.Section("Applying Migrations")
	applied, err := executor.ApplyAll(ctx, migrations)
	for _, version := range applied {
		output.Success("Applied %s", version)
	}
	if err != nil {
		output.Error("%v", err)
		return err
	}
	if len(applied) == 0 {
		output.Info("No pending migrations")
		return nil
	}

	fmt.Println()
	output.Success("Successfully applied %d migration(s)", len(applied))
	return nil
}

func runMigrateDown(ctx context.Context, st *store.Store, _ []string) error {
	if steps < 1 {
		return fmt.Errorf("--steps must be at least 1")
	}
	executor, migrations, err := prepareMigrations(ctx, st)
	if err != nil {
		return err
	}

	if err := executor.Lock(ctx); err != nil {
		return err
	}
	defer func() { _ = executor.Unlock(ctx) }()

	output.Section("Rolling Back Migrations")
	done, err := executor.RollbackSteps(ctx, migrations, steps)
	for _, version := range done {
		output.Success("Rolled back %s", version)
	}
	if err != nil {
		output.Error("%v", err)
		return err
	}
	if len(done) == 0 {
		output.Info("No migrations to rollback")
	}
	return nil
}

func runMigrateStatus(ctx context.Context, st *store.Store, _ []string) error {
	executor, migrations, err := prepareMigrations(ctx, st)
	if err != nil {
		return err
	}

	status, err := executor.GetStatus(ctx, migrations)
	if err != nil {
		return fmt.Errorf("failed to get migration status: %w", err)
	}

	if jsonOutput {
		return printJSON(status)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	_, _ = fmt.Fprintln(w, "-------\t----\t------\t----------")
	for _, record := range status {
		appliedAt := "N/A"
		if record.AppliedAt != nil {
			appliedAt = record.AppliedAt.Format("2006-01-02 15:04:05")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s %s\t%s\n",
			record.Version, record.Name, output.StatusIcon(string(record.Status)), record.Status, appliedAt)
	}
	return w.Flush()
}
