package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/collection"
	"github.com/inodb/vibe-gsea/internal/geneset"
	"github.com/inodb/vibe-gsea/internal/gsdb"
	"github.com/inodb/vibe-gsea/internal/loader"
	"github.com/inodb/vibe-gsea/internal/snapshot"
)

type buildOptions struct {
	collection  string
	format      string
	label       string
	organism    string
	idType      string
	urlTemplate string
	msigdbURLs  bool
	promote     []string
	autoPromote bool
	noCache     bool
}

func newBuildCmd(logger func() *zap.Logger) *cobra.Command {
	var opts buildOptions

	cmd := &cobra.Command{
		Use:   "build [flags] <file>...",
		Short: "Build a gene set db from GMT files or membership tables",
		Long: `Build a gene set db from one or more collection files and save it to the
catalog. GMT files become one collection each (named after the file unless
--collection is given); TSV/CSV tables need collection, name and feature_id
columns. Files may be gzipped.`,
		Example: `  vibe-gsea build h.all.v2024.1.Hs.symbols.gmt c2.cp.kegg.symbols.gmt
  vibe-gsea build --collection H --organism "Homo sapiens" --id-type symbol --msigdb h.gmt
  vibe-gsea build --promote description membership.tsv.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, logger(), args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.collection, "collection", "c", "", "Collection name for GMT input (default: file name)")
	f.StringVar(&opts.format, "input-format", "", "Input format: gmt, table (default: from file name)")
	f.StringVarP(&opts.label, "label", "l", "", "Catalog label for the saved db")
	f.StringVar(&opts.organism, "organism", "", "Organism of every collection")
	f.StringVar(&opts.idType, "id-type", "", "Feature identifier type: entrez, ensembl, symbol")
	f.StringVar(&opts.urlTemplate, "url-template", "", "Gene set URL template with {collection} and {name} placeholders")
	f.BoolVar(&opts.msigdbURLs, "msigdb", false, "Link gene sets to their MSigDB cards")
	f.StringSliceVar(&opts.promote, "promote", nil, "Columns to promote to gene set annotations")
	f.BoolVar(&opts.autoPromote, "auto-promote", false, "Promote every column that is constant within each gene set")
	f.BoolVar(&opts.noCache, "no-cache", false, "Ignore and do not update the snapshot cache")

	return cmd
}

func (o buildOptions) dbOptions(logger *zap.Logger) ([]gsdb.Option, error) {
	dbOpts := []gsdb.Option{gsdb.WithLogger(logger)}
	if o.organism != "" {
		dbOpts = append(dbOpts, gsdb.WithOrganism(o.organism))
	}
	if o.idType != "" {
		t := collection.IDType(o.idType)
		switch t {
		case collection.IDTypeEntrez, collection.IDTypeEnsembl, collection.IDTypeSymbol, collection.IDTypeUnknown:
		default:
			return nil, &usageError{fmt.Errorf("unknown id type %q", o.idType)}
		}
		dbOpts = append(dbOpts, gsdb.WithIDType(t))
	}
	switch {
	case o.urlTemplate != "" && o.msigdbURLs:
		return nil, &usageError{fmt.Errorf("--url-template and --msigdb are mutually exclusive")}
	case o.urlTemplate != "":
		dbOpts = append(dbOpts, gsdb.WithURLGenerator(collection.URLTemplate(o.urlTemplate)))
	case o.msigdbURLs:
		dbOpts = append(dbOpts, gsdb.WithURLGenerator(collection.MSigDBURL))
	}

	var build []geneset.Option
	if len(o.promote) > 0 {
		build = append(build, geneset.WithPromotedColumns(o.promote...))
	}
	if o.autoPromote {
		build = append(build, geneset.WithAutoPromote())
	}
	return append(dbOpts, gsdb.WithBuildOptions(build...)), nil
}

func runBuild(cmd *cobra.Command, logger *zap.Logger, paths []string, opts buildOptions) error {
	if opts.collection != "" && len(paths) > 1 {
		return &usageError{fmt.Errorf("--collection needs a single input file, got %d", len(paths))}
	}
	dbOpts, err := opts.dbOptions(logger)
	if err != nil {
		return err
	}

	db, err := buildDB(cmd, logger, paths, opts, dbOpts)
	if err != nil {
		return err
	}

	catalog, err := openCatalog(logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	id, err := catalog.Save(db, opts.label)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

// buildDB parses the sources, or restores them from the snapshot cache when
// the sources are unchanged since the last build.
func buildDB(cmd *cobra.Command, logger *zap.Logger, paths []string, opts buildOptions, dbOpts []gsdb.Option) (*gsdb.GeneSetDb, error) {
	var (
		cache   *snapshot.Cache
		sources []snapshot.FileFingerprint
	)
	if !opts.noCache && !hasStdin(paths) && !buildFlagsChanged(cmd) {
		dir, err := cacheDir()
		if err != nil {
			return nil, err
		}
		cache = snapshot.New(dir)
		sources, err = snapshot.StatFiles(paths...)
		if err != nil {
			return nil, fmt.Errorf("stat sources: %w", err)
		}
		if cache.Valid(sources...) {
			db, err := cache.Load(gsdb.WithLogger(logger))
			if err == nil {
				logger.Info("loaded gene set db from snapshot cache", zap.Int("gene_sets", db.Len()))
				return db, nil
			}
			logger.Warn("could not load snapshot cache, rebuilding", zap.Error(err))
		}
	}

	srcs := make([]loader.Source, len(paths))
	for i, p := range paths {
		srcs[i] = loader.Source{Path: p, Collection: opts.collection, Format: opts.format}
	}
	rows, err := loader.LoadSources(cmd.Context(), srcs)
	if err != nil {
		return nil, err
	}
	db, err := gsdb.FromRows(rows, dbOpts...)
	if err != nil {
		return nil, err
	}
	logger.Info("built gene set db",
		zap.Int("gene_sets", db.Len()),
		zap.Strings("collections", db.Collections()))

	if cache != nil {
		if err := cache.Write(db, sources...); err != nil {
			logger.Warn("could not write snapshot cache", zap.Error(err))
		}
	}
	return db, nil
}

// buildFlagsChanged reports whether any flag that shapes the built db was
// given; the snapshot cache only covers builds with default flags.
func buildFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"collection", "input-format", "organism", "id-type", "url-template", "msigdb", "promote", "auto-promote"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

func hasStdin(paths []string) bool {
	for _, p := range paths {
		if p == "-" {
			return true
		}
	}
	return false
}
