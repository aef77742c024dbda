package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"picture/internal/gencache"
	"picture/internal/picture"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and reclaim generated images",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show generated image usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *picture.Service) error {
				stats, err := svc.Cache.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, stats)
				}
				printCacheStats(cmd.OutOrStdout(), stats)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print stats as JSON")
	return cmd
}

func printCacheStats(out io.Writer, stats gencache.Stats) {
	fmt.Fprintf(out, "Directory: %s\n", stats.Root)
	fmt.Fprintf(out, "Files:     %d (%s)\n", stats.Files, humanBytes(stats.TotalBytes))
	if !stats.Newest.IsZero() {
		fmt.Fprintf(out, "Newest:    %s\n", stats.Newest.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(out, "Disk:      %s free (%.1f%%)\n", humanBytes(int64(stats.FreeBytes)), stats.FreeRatio*100)
	if !stats.Manifest {
		fmt.Fprintln(out, "Manifest:  disabled (orphan detection unavailable)")
		return
	}
	fmt.Fprintf(out, "Manifest:  %d entries from %d sources\n", stats.Entries, stats.Sources)
	fmt.Fprintf(out, "Orphans:   %d (%s reclaimable)\n", stats.Orphans, humanBytes(stats.OrphanBytes))
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove derived images whose source was deleted or edited",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *picture.Service) error {
				res, err := svc.Cache.Prune(cmd.Context(), dryRun)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, res)
				}
				out := cmd.OutOrStdout()
				if len(res.Orphans) == 0 {
					fmt.Fprintln(out, "Nothing to prune")
					return nil
				}
				rows := make([][]string, 0, len(res.Orphans))
				for _, o := range res.Orphans {
					rows = append(rows, []string{o.URLPath, o.Reason, humanBytes(o.SizeBytes)})
				}
				fmt.Fprintln(out, renderTable([]string{"Path", "Reason", "Size"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}))
				verb := "Removed"
				if res.DryRun {
					verb = "Would remove"
				}
				fmt.Fprintf(out, "%s %d entries (%s)\n", verb, len(res.Orphans), humanBytes(res.FreedBytes))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be removed without deleting")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the prune result as JSON")
	return cmd
}

func humanBytes(v int64) string {
	const unit = 1024
	if v < unit {
		return fmt.Sprintf("%d B", v)
	}
	div := int64(unit)
	exp := 0
	for n := v / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(v)/float64(div), "KMGTPEZY"[exp])
}
