// Command isosurf evaluates surface scripts and writes the surfaces they
// declare as JVXL files, optionally recording them in a SQLite database.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chazu/isosurf/pkg/config"
	"github.com/chazu/isosurf/pkg/jvxl"
	"github.com/chazu/isosurf/pkg/monitoring"
	"github.com/chazu/isosurf/pkg/store"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "isosurf",
		Short:        "compute isosurfaces from surface scripts",
		SilenceUsage: true,
	}
	var quiet bool
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress pipeline logging")
	root.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if quiet {
			monitoring.SetLogger(nil)
		}
	}
	root.AddCommand(newRunCmd(), newInspectCmd(), newListCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var cfgPath, outDir, dbPath string
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "evaluate a script and write its surfaces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if cfgPath != "" {
				var err error
				if cfg, err = config.Load(cfgPath); err != nil {
					return err
				}
			}
			source, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			app, err := NewApp(cfg)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			result := app.Evaluate(ctx, string(source))

			var db *store.Store
			if dbPath != "" {
				if db, err = store.Open(dbPath); err != nil {
					return err
				}
				defer db.Close()
			}
			if outDir != "" {
				if err := os.MkdirAll(outDir, 0o755); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			names := fileNames{}
			for i, sd := range result.Surfaces {
				s := sd.surface
				data, err := s.Encode()
				if err != nil {
					return err
				}
				name := names.next(sd.Name, i)
				if outDir != "" {
					path := filepath.Join(outDir, name+".jvxl")
					if err := os.WriteFile(path, data, 0o644); err != nil {
						return err
					}
				}
				if db != nil {
					rec := &store.Record{
						Name:      sd.Name,
						Kind:      sd.Kind,
						Label:     s.Params.DisplayLabel(),
						Triangles: s.Mesh.TriangleCount(),
						Warnings:  sd.Warnings,
						Blob:      data,
					}
					if err := db.Insert(ctx, rec); err != nil {
						return err
					}
				}
				fmt.Fprintf(w, "%s\t%s\t%d triangles\t%d warnings\t%d bytes\n",
					name, sd.Kind, s.Mesh.TriangleCount(), sd.Warnings, len(data))
			}
			for _, e := range result.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e.Message)
			}
			for _, e := range result.Errors {
				if e.Line > 0 {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: line %d: %s\n", e.Line, e.Message)
				} else {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e.Message)
				}
			}
			if len(result.Errors) > 0 {
				return fmt.Errorf("%s: %d errors", args[0], len(result.Errors))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "TOML config file")
	cmd.Flags().StringVar(&outDir, "out", "", "directory for .jvxl files")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database to record surfaces in")
	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.jvxl>",
		Short: "decode a JVXL file and summarise it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := jvxl.Decode(data)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "kind:      %s\n", doc.Kind)
			fmt.Fprintf(w, "label:     %s\n", doc.Label)
			fmt.Fprintf(w, "cutoff:    %g\n", doc.Cutoff)
			if doc.Plane != nil {
				fmt.Fprintf(w, "plane:     %s\n", doc.Plane)
			}
			fmt.Fprintf(w, "lattice:   %v points from %v\n", doc.Grid.Counts, doc.Grid.Origin)
			fmt.Fprintf(w, "values:    %d\n", len(doc.Values))
			if doc.Mesh != nil {
				fmt.Fprintf(w, "mesh:      %d vertices, %d triangles\n", doc.Mesh.VertexCount(), doc.Mesh.TriangleCount())
				fmt.Fprintf(w, "precision: %g %g %g\n", doc.Precision[0], doc.Precision[1], doc.Precision[2])
			}
			return nil
		},
	}
}

func newListCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "list the surfaces recorded in a database",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := store.Open(dbPath)
			if err != nil {
				return err
			}
			defer db.Close()
			recs, err := db.List(cmd.Context())
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, r := range recs {
				at := time.Unix(0, r.CreatedAtNs).UTC().Format(time.RFC3339)
				fmt.Fprintf(w, "%s\t%s\t%s\t%d triangles\t%s\n", r.ID, r.Name, r.Kind, r.Triangles, at)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "isosurf.db", "SQLite database")
	return cmd
}

// fileNames hands out distinct file names within one run.
type fileNames map[string]bool

// next returns fileName(name, i), suffixed with a number when an earlier
// surface already took it.
func (used fileNames) next(name string, i int) string {
	base := fileName(name, i)
	n := base
	for k := i; used[n]; k++ {
		n = fmt.Sprintf("%s-%d", base, k)
	}
	used[n] = true
	return n
}

// fileName turns a surface name into a safe file name.
func fileName(name string, i int) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if strings.Trim(clean, "._") == "" {
		return fmt.Sprintf("surface-%d", i)
	}
	return clean
}
