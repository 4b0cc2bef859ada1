// Package cli implements the pantry command-line interface: CRUD over any
// collection of the configured driver, seeding, JSONL export and the CMS API
// server.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func userError(format string, a ...any) error {
	return &ExitError{Code: exitUserError, Err: fmt.Errorf(format, a...)}
}

func sysError(format string, a ...any) error {
	return &ExitError{Code: exitSysError, Err: fmt.Errorf(format, a...)}
}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	provider  string
	user      string
	jsonMode  bool
	verbose   bool
}

var flags rootFlags

// current holds the settings and logger resolved by the root command before
// any subcommand runs.
var current struct {
	settings settings
	logger   *zap.Logger
}

// NewRootCmd creates the top-level "pantry" command with global flags and all
// subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pantry",
		Short: "Pluggable data access for the admin dashboard",
		Long: "Pantry reads and writes dashboard collections through a memory,\n" +
			"SQLite or remote CMS driver and can serve any of them over HTTP.",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: prepare,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if current.logger != nil {
				_ = current.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "data directory (default: $(CWD)/.pantry-db)")
	root.PersistentFlags().StringVar(&flags.provider, "provider", "", "data provider: memory, sqlite or remote (default from config.yaml)")
	root.PersistentFlags().StringVar(&flags.user, "user", "", "session user id for --mine operations (default from config.yaml)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "print full response envelopes as JSON")
	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newGetCmd())
	root.AddCommand(newCreateCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newDeleteCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newServeCmd())

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pantry:", err)
		var exit *ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.Code)
		}
		os.Exit(exitUserError)
	}
	os.Exit(exitSuccess)
}

// prepare resolves directories, loads config.yaml and builds the logger.
func prepare(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return sysError("load config: %w", err)
	}
	logger, err := newLogger(flags.verbose)
	if err != nil {
		return sysError("build logger: %w", err)
	}
	current.settings = s
	current.logger = logger
	logger.Debug("settings resolved",
		zap.String("config_dir", s.ConfigDir),
		zap.String("provider", s.Driver.Provider),
		zap.String("data_dir", s.Driver.DataDir))
	return nil
}

// newLogger returns a development logger when verbose, otherwise a production
// logger that only reports warnings and errors.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
