package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/output"
)

func newListCmd(logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved gene set dbs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}
			catalog, err := openCatalog(logger())
			if err != nil {
				return err
			}
			defer catalog.Close()

			entries, err := catalog.List()
			if err != nil {
				return err
			}
			return output.WriteEntries(cmd.OutOrStdout(), format, entries)
		},
	}
}

func newDeleteCmd(logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <db>...",
		Short: "Delete saved gene set dbs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := openCatalog(logger())
			if err != nil {
				return err
			}
			defer catalog.Close()

			for _, ref := range args {
				id, err := catalog.Resolve(ref)
				if err != nil {
					return err
				}
				if err := catalog.Delete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}

func newSearchCmd(logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "search <feature>",
		Short: "Find saved gene sets containing a feature",
		Example: `  vibe-gsea search TP53
  vibe-gsea search -f json 7157`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}
			catalog, err := openCatalog(logger())
			if err != nil {
				return err
			}
			defer catalog.Close()

			hits, err := catalog.SearchByFeature(args[0])
			if err != nil {
				return err
			}
			return output.WriteHits(cmd.OutOrStdout(), format, hits)
		},
	}
}
