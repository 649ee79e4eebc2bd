package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// MSigDB release downloads.
const (
	msigdbBaseURL        = "https://data.broadinstitute.org/gsea-msigdb/msigdb/release"
	msigdbDefaultRelease = "2024.1.Hs"
)

// msigdbURL returns the GMT URL of a collection, e.g. h.all in release
// 2024.1.Hs with symbols -> .../2024.1.Hs/h.all.v2024.1.Hs.symbols.gmt.
func msigdbURL(base, release, collection, ids string) string {
	return fmt.Sprintf("%s/%s/%s.v%s.%s.gmt", base, release, collection, release, ids)
}

type downloadOptions struct {
	release     string
	collections []string
	ids         string
	outputDir   string
	baseURL     string
}

func newDownloadCmd(logger func() *zap.Logger) *cobra.Command {
	opts := downloadOptions{baseURL: msigdbBaseURL}

	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download MSigDB collections as GMT files",
		Long: `Download MSigDB gene set collections as GMT files, ready for
"vibe-gsea build". Files are stored in ~/.vibe-gsea/msigdb/<release>/ and
existing files are not downloaded again.`,
		Example: `  vibe-gsea download                                 # hallmark, symbols
  vibe-gsea download -c h.all -c c2.cp.kegg_medicus --ids entrez
  vibe-gsea download --release 2023.2.Hs --dir /data/msigdb`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths, err := runDownload(cmd.ErrOrStderr(), logger(), opts)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.release, "release", msigdbDefaultRelease, "MSigDB release")
	f.StringSliceVarP(&opts.collections, "collection", "c", []string{"h.all"}, "Collections to download")
	f.StringVar(&opts.ids, "ids", "symbols", "Identifier type: symbols or entrez")
	f.StringVarP(&opts.outputDir, "dir", "d", "", "Destination directory (default: ~/.vibe-gsea/msigdb/<release>)")

	return cmd
}

func runDownload(progress io.Writer, logger *zap.Logger, opts downloadOptions) ([]string, error) {
	if opts.ids != "symbols" && opts.ids != "entrez" {
		return nil, &usageError{fmt.Errorf("unknown identifier type %q (want symbols or entrez)", opts.ids)}
	}

	destDir := opts.outputDir
	if destDir == "" {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		destDir = filepath.Join(dir, "msigdb", opts.release)
	}
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create directory %s: %w", destDir, err)
	}

	logger.Info("downloading MSigDB collections",
		zap.String("release", opts.release),
		zap.Strings("collections", opts.collections),
		zap.String("destination", destDir))

	var paths []string
	for _, c := range opts.collections {
		url := msigdbURL(strings.TrimSuffix(opts.baseURL, "/"), opts.release, c, opts.ids)
		dest := filepath.Join(destDir, filepath.Base(url))
		if err := downloadFile(progress, url, dest); err != nil {
			return nil, fmt.Errorf("download %s: %w", c, err)
		}
		paths = append(paths, dest)
	}
	return paths, nil
}

// downloadFile downloads a file from URL to the destination path with progress.
func downloadFile(progress io.Writer, url, destPath string) error {
	// Check if file already exists
	if info, err := os.Stat(destPath); err == nil {
		fmt.Fprintf(progress, "  %s already exists (%s), skipping\n", filepath.Base(destPath), formatSize(info.Size()))
		return nil
	}

	fmt.Fprintf(progress, "  Downloading %s...\n", filepath.Base(destPath))

	client := &http.Client{
		Timeout: 10 * time.Minute,
	}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP error: %s", resp.Status)
	}

	tmpPath := destPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}

	var downloaded int64
	pw := &progressWriter{
		out:        progress,
		total:      resp.ContentLength,
		downloaded: &downloaded,
		lastPrint:  time.Now(),
	}

	_, err = io.Copy(f, io.TeeReader(resp.Body, pw))
	f.Close()

	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("download failed: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename file: %w", err)
	}

	fmt.Fprintf(progress, "    Done: %s\n", formatSize(downloaded))
	return nil
}

// progressWriter tracks download progress.
type progressWriter struct {
	out        io.Writer
	total      int64
	downloaded *int64
	lastPrint  time.Time
}

func (pw *progressWriter) Write(p []byte) (int, error) {
	n := len(p)
	*pw.downloaded += int64(n)

	// Print progress every second
	if time.Since(pw.lastPrint) > time.Second {
		if pw.total > 0 {
			pct := float64(*pw.downloaded) / float64(pw.total) * 100
			fmt.Fprintf(pw.out, "\r    Progress: %s / %s (%.1f%%)  ",
				formatSize(*pw.downloaded), formatSize(pw.total), pct)
		} else {
			fmt.Fprintf(pw.out, "\r    Progress: %s  ", formatSize(*pw.downloaded))
		}
		pw.lastPrint = time.Now()
	}

	return n, nil
}

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
