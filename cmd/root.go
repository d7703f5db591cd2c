// Package cmd is the book-review command line: the API server and the
// operational commands around its store.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"book-review/config"
	"book-review/database"
	"book-review/logging"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string

	host        string
	port        string
	storeDriver string
	logLevel    string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "book-review",
		Short:         "Book review API: books, ratings and reviews behind JWT auth",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to the JSON config file (default "+config.AppConfigFile+")")
	pf.StringVar(&opts.envFile, "env-file", "", "dotenv file to load (default .env)")
	pf.StringVar(&opts.host, "host", "", "listen host (overrides HOST)")
	pf.StringVar(&opts.port, "port", "", "listen port (overrides PORT)")
	pf.StringVar(&opts.storeDriver, "store", "", "store driver: mongodb, postgres or memory (overrides STORE_DRIVER)")
	pf.StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServerCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newUserCmd(opts))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load layers the changed flags of cmd over the file and environment config.
func (o *rootOptions) load(cmd *cobra.Command) (*config.AppConfig, error) {
	cfg, err := config.Load(config.LoadOptions{Path: o.configPath, EnvFile: o.envFile})
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("store") {
		cfg.StoreDriver = o.storeDriver
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.AppConfig, out io.Writer) (logging.Logger, error) {
	log, err := logging.New(out, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func openStore(ctx context.Context, cfg *config.AppConfig) (database.DatabaseDriver, error) {
	conn, err := cfg.Connection()
	if err != nil {
		return nil, err
	}
	return database.Open(ctx, conn)
}
