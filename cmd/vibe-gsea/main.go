// Package main provides the vibe-gsea command-line tool.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/inodb/vibe-gsea/internal/duckdb"
	"github.com/inodb/vibe-gsea/internal/output"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Config keys.
const (
	keyDB           = "db"
	keyCacheDir     = "cache_dir"
	keyMinSize      = "conform.min_size"
	keyMaxSize      = "conform.max_size"
	keyOutputFormat = "output.format"
	keyVerbose      = "verbose"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var logger *zap.Logger
	root := newRootCmd(&logger)
	root.SetArgs(args)

	err := root.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err == nil {
		return ExitSuccess
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var usage *usageError
	if errors.As(err, &usage) {
		return ExitUsage
	}
	return ExitError
}

// usageError marks errors caused by invalid command line input.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func newRootCmd(logger **zap.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vibe-gsea",
		Short: "Gene set catalog for gene set enrichment analysis",
		Long: `vibe-gsea builds gene set dbs from GMT files and membership tables,
conforms them to an experiment's feature universe and keeps them in a DuckDB
catalog for reuse.

Configuration is read from ~/.vibe-gsea.yaml and VIBE_GSEA_* environment
variables; flags take precedence.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			l, err := newLogger(viper.GetBool(keyVerbose))
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			*logger = l
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err}
	})

	flags := cmd.PersistentFlags()
	flags.String(keyDB, "", "Catalog database path (default: ~/.vibe-gsea/catalog.duckdb)")
	flags.String("cache-dir", "", "Snapshot cache directory (default: ~/.vibe-gsea)")
	flags.StringP("format", "f", "", "Output format: tab, json, yaml")
	flags.BoolP(keyVerbose, "v", false, "Verbose logging")
	_ = viper.BindPFlag(keyCacheDir, flags.Lookup("cache-dir"))
	_ = viper.BindPFlag(keyOutputFormat, flags.Lookup("format"))

	cobra.OnInitialize(initConfig)

	log := func() *zap.Logger { return *logger }
	cmd.AddCommand(newBuildCmd(log))
	cmd.AddCommand(newConformCmd(log))
	cmd.AddCommand(newListCmd(log))
	cmd.AddCommand(newDeleteCmd(log))
	cmd.AddCommand(newGeneSetsCmd(log))
	cmd.AddCommand(newMembersCmd(log))
	cmd.AddCommand(newIndicesCmd(log))
	cmd.AddCommand(newSearchCmd(log))
	cmd.AddCommand(newDownloadCmd(log))
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// initConfig reads ~/.vibe-gsea.yaml and VIBE_GSEA_* environment variables.
func initConfig() {
	if cfg := os.Getenv("VIBE_GSEA_CONFIG"); cfg != "" {
		viper.SetConfigFile(cfg)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.SetConfigFile(filepath.Join(home, ".vibe-gsea.yaml"))
	}
	viper.SetEnvPrefix("VIBE_GSEA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(keyMinSize, 1)
	viper.SetDefault(keyMaxSize, 0)
	viper.SetDefault(keyOutputFormat, string(output.FormatTab))

	_ = viper.ReadInConfig()
}

// newLogger builds a stderr logger: info and above as console output, or
// the development config with debug output when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		cfg := zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	return cfg.Build()
}

// defaultDir returns ~/.vibe-gsea.
func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".vibe-gsea"), nil
}

func cacheDir() (string, error) {
	if dir := viper.GetString(keyCacheDir); dir != "" {
		return dir, nil
	}
	return defaultDir()
}

// openCatalog opens the configured DuckDB catalog.
func openCatalog(logger *zap.Logger) (*duckdb.Store, error) {
	path := viper.GetString(keyDB)
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "catalog.duckdb")
	}
	store, err := duckdb.Open(path)
	if err != nil {
		return nil, err
	}
	store.SetLogger(logger)
	return store, nil
}

// outputFormat returns the configured output format.
func outputFormat() (output.Format, error) {
	f, err := output.ParseFormat(viper.GetString(keyOutputFormat))
	if err != nil {
		return "", &usageError{err}
	}
	return f, nil
}
