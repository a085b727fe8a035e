package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/akolanti/GroundedRAG/internal/app"
	"github.com/akolanti/GroundedRAG/internal/rag/ingest"
)

func newIndexCmd(opts *rootOptions) *cobra.Command {
	var isTable bool
	cmd := &cobra.Command{
		Use:   "index <dir-or-file>",
		Short: "Index every supported document under a path",
		Long: `Walks the path and indexes each pdf, docx, rtf, odt, txt, md and csv file.
A document already in the index is replaced. Files under a directory are keyed by
their path relative to it; a single file is keyed by its name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			files, err := discover(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No supported documents found.")
				return nil
			}

			var failed int
			for _, f := range files {
				chunks, err := engine.Indexer.IndexFile(ctx, f.source, f.path, isTable)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL %s: %v\n", f.source, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK   %s (%d chunks)\n", f.source, len(chunks))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents failed", failed, len(files))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&isTable, "table", false, "treat every document as tabular")
	return cmd
}

type discovered struct {
	path   string
	source string
}

// discover lists supported files in walk order. Hidden directories are skipped.
func discover(root string) ([]discovered, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		if !ingest.IsSupported(root) {
			return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(root))
		}
		return []discovered{{path: root, source: filepath.Base(root)}}, nil
	}

	var out []discovered
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !ingest.IsSupported(path) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		out = append(out, discovered{path: path, source: filepath.ToSlash(rel)})
		return nil
	})
	return out, err
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify [source...]",
		Short: "Check the index agrees with the chunk store",
		Long:  "A source that disagrees is dropped from the index and must be indexed again. With no arguments every source is checked.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			sources := args
			if len(sources) == 0 {
				infos, err := engine.Corpus.Sources(ctx)
				if err != nil {
					return err
				}
				for _, s := range infos {
					sources = append(sources, s.SourcePath)
				}
			}

			var errs []error
			for _, s := range sources {
				if err := engine.Corpus.Verify(ctx, s); err != nil {
					errs = append(errs, err)
					fmt.Fprintf(cmd.OutOrStdout(), "CORRUPT %s: %v\n", s, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "OK      %s\n", s)
			}
			return errors.Join(errs...)
		},
	}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <source> <out.json>",
		Short: "Write the persisted chunk record of a source",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			record, err := engine.Corpus.Record(ctx, args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(record, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d chunks to %s\n", len(record.Chunks), args[1])
			return nil
		},
	}
}

func newRemoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <source>",
		Short: "Remove a source from the index and the chunk store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			engine, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			if err := engine.Indexer.RemoveSource(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
			return nil
		},
	}
}

func newSourcesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List indexed sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			engine, err := opts.openEngine(ctx)
			if err != nil {
				return err
			}
			defer engine.Close()

			infos, err := engine.Corpus.Sources(ctx)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sources indexed.")
				return nil
			}
			for _, s := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d chunks\t%s\t%s\n",
					s.SourcePath, s.ChunkCount, s.EmbeddingModel, s.IndexedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve rag_search_2pass and rag_get_page over stdio",
		Long: `Runs the MCP tools over stdio for a local assistant. Sessions live in process
memory; no redis is needed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := opts.settings()
			if err != nil {
				return err
			}
			a, err := app.Bootstrap(ctx, s, app.Options{NoRedis: true})
			if err != nil {
				return err
			}
			defer a.Close()
			return a.MCP.Run(ctx)
		},
	}
}
