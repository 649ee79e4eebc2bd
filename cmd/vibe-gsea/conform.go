package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/duckdb"
	"github.com/inodb/vibe-gsea/internal/gsdb"
	"github.com/inodb/vibe-gsea/internal/loader"
)

func newConformCmd(logger func() *zap.Logger) *cobra.Command {
	var (
		universePath   string
		featureMapPath string
		label          string
	)

	cmd := &cobra.Command{
		Use:   "conform [flags] <db>",
		Short: "Conform a saved gene set db to a feature universe",
		Long: `Intersect every gene set of a saved db with the features of an experiment
and flag sets whose matched size is outside the size bounds as inactive. The
conformed db is saved as a new catalog entry; <db> is an id, id prefix or
label.

The universe file is an expression matrix (first column), a ranked list
(.rnk) or one identifier per line.`,
		Example: `  vibe-gsea conform --universe expr.tsv --min-size 15 --max-size 500 msigdb
  vibe-gsea conform --universe ranks.rnk --feature-map entrez2symbol.tsv 3f2a`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConform(cmd, logger(), args[0], universePath, featureMapPath, label)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&universePath, "universe", "u", "", "Universe file (required)")
	f.StringVar(&featureMapPath, "feature-map", "", "Two-column file mapping gene set features to universe identifiers")
	f.StringVarP(&label, "label", "l", "", "Catalog label for the conformed db")
	f.Int("min-size", 1, "Minimum matched size of an active gene set")
	f.Int("max-size", 0, "Maximum matched size of an active gene set (0: unbounded)")
	_ = viper.BindPFlag(keyMinSize, f.Lookup("min-size"))
	_ = viper.BindPFlag(keyMaxSize, f.Lookup("max-size"))
	_ = cmd.MarkFlagRequired("universe")

	return cmd
}

// conformBounds reads the size bounds from flags or config.
func conformBounds() gsdb.Bounds {
	b := gsdb.Bounds{MinSize: viper.GetInt(keyMinSize), MaxSize: viper.GetInt(keyMaxSize)}
	if b.MaxSize <= 0 {
		b.MaxSize = gsdb.Unbounded
	}
	return b
}

func runConform(cmd *cobra.Command, logger *zap.Logger, ref, universePath, featureMapPath, label string) error {
	universe, err := loader.LoadUniverse(universePath)
	if err != nil {
		return err
	}
	opts := []gsdb.ConformOption{gsdb.WithBounds(conformBounds())}
	if featureMapPath != "" {
		m, err := loader.LoadFeatureMap(featureMapPath)
		if err != nil {
			return err
		}
		opts = append(opts, gsdb.WithFeatureMap(m))
	}

	catalog, err := openCatalog(logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	db, _, err := loadDB(catalog, ref, logger)
	if err != nil {
		return err
	}
	conformed, err := db.Conform(universe, opts...)
	if err != nil {
		return &usageError{err}
	}

	id, err := catalog.Save(conformed, label)
	if err != nil {
		return err
	}

	info := conformed.ConformInfo()
	logger.Info("conformed gene set db",
		zap.String("id", id),
		zap.Int("universe", info.UniverseSize),
		zap.Int("active", info.Active),
		zap.Int("inactive", info.Inactive),
		zap.Int("unmapped", info.Unmapped))
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

// loadDB resolves a catalog reference and loads the db.
func loadDB(catalog *duckdb.Store, ref string, logger *zap.Logger) (*gsdb.GeneSetDb, string, error) {
	id, err := catalog.Resolve(ref)
	if err != nil {
		return nil, "", err
	}
	db, err := catalog.Load(id, gsdb.WithLogger(logger))
	if err != nil {
		return nil, "", err
	}
	return db, id, nil
}
