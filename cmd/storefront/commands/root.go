package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/marshallshelly/storefront/pkg/runtime"
	"github.com/marshallshelly/storefront/pkg/store"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// EnvPassword supplies --password when the flag is omitted.
const EnvPassword = "STOREFRONT_PASSWORD"

var (
	// Global flags
	configPath string
	envFile    string
	verbose    bool
	jsonOutput bool
	asUser     string
	password   string

	log = logrus.New()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Storefront - operator tool for the game storefront database",
	Long: `Storefront manages the game storefront database: schema migrations,
accounts and funds, the catalog, purchases, developer status, moderation
and reviews.

Connection settings come from a YAML file (--config) or, when no file is
given, from STOREFRONT_DB_* environment variables. A .env file is loaded
first when present.`,
	Version:       "0.4.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setup()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to the database YAML config")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file loaded before reading config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&asUser, "as", "", "Username to act as")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "Password for --as (default $"+EnvPassword+")")
}

func setup() error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if password == "" {
		password = os.Getenv(EnvPassword)
	}
	return nil
}

// loadConfig reads --config, or the environment when no file is given.
func loadConfig() (runtime.Config, error) {
	if configPath != "" {
		return runtime.LoadConfig(configPath)
	}
	return runtime.ConfigFromEnv()
}

// openStore connects to the database and returns the store with its
// cleanup function.
func openStore(ctx context.Context) (*store.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log.WithField("config", cfg.String()).Debug("connecting")

	session := runtime.NewSession(cfg)
	if err := session.Open(ctx); err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = session.Close(context.Background())
	}
	return store.New(session, store.WithLogger(log)), cleanup, nil
}

// actingUser authenticates --as with --password and returns the user id.
func actingUser(ctx context.Context, st *store.Store) (int64, error) {
	if asUser == "" {
		return 0, fmt.Errorf("--as is required")
	}
	if password == "" {
		return 0, fmt.Errorf("--password or $%s is required", EnvPassword)
	}
	return st.ValidateUser(ctx, asUser, password)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withStore opens the store around run.
func withStore(run func(ctx context.Context, st *store.Store, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, cleanup, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer cleanup()
		return run(ctx, st, args)
	}
}

func parseID(arg, what string) (int64, error) {
	var id int64
	if _, err := fmt.Sscan(arg, &id); err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s id %q", what, arg)
	}
	return id, nil
}
