package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-gsea/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-gsea configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-gsea.yaml.",
		Example: `  vibe-gsea config                              # show all config
  vibe-gsea config set conform.min_size 15      # default minimum gene set size
  vibe-gsea config set output.format json       # default output format
  vibe-gsea config get db                       # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// configKeys are the settings written to and shown from the config file.
var configKeys = []string{keyDB, keyCacheDir, keyMinSize, keyMaxSize, keyOutputFormat}

func runConfigShow(w io.Writer) error {
	settings := make(map[string]any)
	for _, k := range configKeys {
		if viper.IsSet(k) {
			settings[k] = viper.Get(k)
		}
	}
	if viper.ConfigFileUsed() == "" && len(settings) == 0 {
		fmt.Fprintln(w, "# No configuration set. Config file: ~/.vibe-gsea.yaml")
		return nil
	}

	out, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, key, value string) error {
	known := false
	for _, k := range configKeys {
		known = known || k == key
	}
	if !known {
		return &usageError{fmt.Errorf("unknown config key %q (want one of %s)", key, strings.Join(configKeys, ", "))}
	}

	switch key {
	case keyMinSize, keyMaxSize:
		n, err := strconv.Atoi(value)
		if err != nil {
			return &usageError{fmt.Errorf("%s must be an integer: %w", key, err)}
		}
		viper.Set(key, n)
	case keyOutputFormat:
		if _, err := output.ParseFormat(value); err != nil {
			return &usageError{err}
		}
		viper.Set(key, value)
	default:
		viper.Set(key, value)
	}

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".vibe-gsea.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}
