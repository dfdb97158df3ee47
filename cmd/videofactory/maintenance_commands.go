package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bnema/videofactory/internal/gateway"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
)

func newCleanupCommand(ctx *commandContext) *cobra.Command {
	var maxAge time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old local working files, uploads and outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if maxAge <= 0 {
				maxAge = cfg.CleanupMaxAge()
			}

			now := time.Now()
			var files, dirs int
			var freed int64
			for _, root := range []string{cfg.TempDir, cfg.UploadDir, cfg.OutputDir} {
				result := gateway.CleanupLocal(root, maxAge, now)
				files += len(result.RemovedFiles)
				dirs += len(result.RemovedDirs)
				freed += result.FreedBytes
				for _, err := range result.Errors {
					logger.Warn.Printf("cleanup %s: %v", root, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d files and %d directories older than %s, freed %s\n",
				files, dirs, maxAge, humanize.Bytes(uint64(freed)))
			return nil
		},
	}

	cmd.Flags().DurationVar(&maxAge, "max-age", 0, "Age after which files are deleted (default from CLEANUP_MAX_AGE_HOURS)")
	return cmd
}

func newUsageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show local disk and remote storage usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, dir := range []struct{ label, path string }{
				{"uploads", app.cfg.UploadDir},
				{"temp", app.cfg.TempDir},
				{"output", app.cfg.OutputDir},
			} {
				u, err := gateway.LocalUsageOf(dir.path)
				if err != nil {
					return fmt.Errorf("usage of %s: %w", dir.path, err)
				}
				largest := ""
				if u.LargestPath != "" {
					largest = fmt.Sprintf("%s (%s)", u.LargestPath, humanize.Bytes(uint64(u.LargestSize)))
				}
				rows = append(rows, []string{dir.label, strconv.Itoa(u.Files), humanize.Bytes(uint64(u.Bytes)), largest})
			}

			if app.storage.Available() {
				u, err := app.storage.Usage(cmd.Context())
				if err != nil {
					logger.Warn.Printf("remote usage unavailable: %v", err)
					rows = append(rows, []string{"remote", "-", "unavailable", ""})
				} else {
					rows = append(rows, []string{"remote", strconv.Itoa(u.Objects), humanize.Bytes(uint64(u.Bytes)), ""})
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Location", "Files", "Size", "Largest"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}
