package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/inodb/vibe-gsea/internal/geneset"
	"github.com/inodb/vibe-gsea/internal/gsdb"
	"github.com/inodb/vibe-gsea/internal/output"
)

// selection holds the flags that narrow a db to some gene sets.
type selection struct {
	activeOnly  bool
	collections []string
	features    []string
}

func (s *selection) addFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.BoolVarP(&s.activeOnly, "active-only", "a", false, "Only active gene sets (and, when conformed, matched features)")
	f.StringSliceVarP(&s.collections, "collection", "c", nil, "Only these collections")
	f.StringSliceVar(&s.features, "feature", nil, "Only gene sets containing any of these features")
}

func (s *selection) apply(db *gsdb.GeneSetDb) *gsdb.GeneSetDb {
	if len(s.features) > 0 {
		db = db.SubsetByFeatures(s.features)
	}
	if len(s.collections) > 0 {
		want := make(map[string]bool, len(s.collections))
		for _, c := range s.collections {
			want[c] = true
		}
		db = db.SubsetFunc(func(gs gsdb.GeneSet) bool { return want[gs.Collection] })
	}
	return db
}

func newGeneSetsCmd(logger func() *zap.Logger) *cobra.Command {
	var (
		sel     selection
		withURL bool
	)

	cmd := &cobra.Command{
		Use:   "genesets [flags] <db>",
		Short: "Print the gene set table of a saved db",
		Args:  cobra.ExactArgs(1),
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

			db, _, err := loadDB(catalog, args[0], logger())
			if err != nil {
				return err
			}
			db = sel.apply(db)

			sets := db.GeneSets(sel.activeOnly)
			urls := make([]string, len(sets))
			if withURL {
				keys := make([]geneset.Key, len(sets))
				for i, gs := range sets {
					keys[i] = gs.Key()
				}
				if urls, err = db.GeneSetURLs(keys); err != nil {
					return err
				}
			}

			w := output.NewGeneSetWriter(cmd.OutOrStdout(), format, db.AnnotationColumns(), withURL)
			if err := w.WriteHeader(); err != nil {
				return err
			}
			for i, gs := range sets {
				if err := w.Write(gs, urls[i]); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
	sel.addFlags(cmd)
	cmd.Flags().BoolVar(&withURL, "url", false, "Add gene set URLs")

	return cmd
}

func newMembersCmd(logger func() *zap.Logger) *cobra.Command {
	var (
		sel  selection
		name string
	)

	cmd := &cobra.Command{
		Use:   "members [flags] <db>",
		Short: "Print the membership rows of a saved db",
		Example: `  vibe-gsea members msigdb
  vibe-gsea members -c H --name HALLMARK_HYPOXIA --active-only conformed`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := outputFormat()
			if err != nil {
				return err
			}
			if name != "" && len(sel.collections) != 1 {
				return &usageError{fmt.Errorf("--name needs exactly one --collection")}
			}
			catalog, err := openCatalog(logger())
			if err != nil {
				return err
			}
			defer catalog.Close()

			db, _, err := loadDB(catalog, args[0], logger())
			if err != nil {
				return err
			}

			var members []gsdb.Member
			if name != "" {
				members, err = db.GeneSet(sel.collections[0], name, sel.activeOnly)
				if err != nil {
					return err
				}
			} else {
				members = sel.apply(db).Members(sel.activeOnly)
			}

			w := output.NewMemberWriter(cmd.OutOrStdout(), format, db.Columns(), db.IsConformed())
			if err := w.WriteHeader(); err != nil {
				return err
			}
			for _, m := range members {
				if err := w.Write(m); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
	sel.addFlags(cmd)
	cmd.Flags().StringVar(&name, "name", "", "Only this gene set")

	return cmd
}

func newIndicesCmd(logger func() *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "indices <db>",
		Short: "Print universe positions (1-based) of the active gene sets of a conformed db",
		Long: `Print, for every active gene set of a conformed db, the 1-based positions of
its matched features in the universe. This is the input enrichment methods
take alongside an expression matrix or ranked statistic.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := openCatalog(logger())
			if err != nil {
				return err
			}
			defer catalog.Close()

			db, _, err := loadDB(catalog, args[0], logger())
			if err != nil {
				return err
			}
			indices, err := db.Indices()
			if err != nil {
				return err
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			w.WriteString("collection\tname\tpositions\n")
			for _, s := range indices {
				pos := make([]string, len(s.Positions))
				for i, p := range s.Positions {
					pos[i] = strconv.Itoa(p + 1)
				}
				w.WriteString(s.Collection + "\t" + s.Name + "\t" + strings.Join(pos, ",") + "\n")
			}
			return w.Flush()
		},
	}
}
