package main

import (
	"fmt"

	"github.com/xivdev/Penumbra-sub003/internal/core"

	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage synthesized table files",
}

var cacheCleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete synthesized tables the collection no longer uses",
	Long: `Resolve the collection, then delete every synthesized table file it does not
reference. Deleted tables are regenerated on demand.`,
	RunE: runCacheClean,
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the size and state of the table cache",
	RunE:  runCacheInfo,
}

type cacheInfoJSON struct {
	Path       string `json:"path"`
	Files      int    `json:"files"`
	Size       int64  `json:"size"`
	Referenced int    `json:"referenced"`
	Missing    int    `json:"missing"`
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheCleanCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		if _, err := svc.Resolve(cmd.Context(), collectionName); err != nil {
			return fmt.Errorf("resolving: %w", err)
		}
		removed, err := svc.CleanCache()
		if err != nil {
			return err
		}
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), map[string]int{"removed": removed})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d file(s)\n", removed)
		return nil
	})
}

func runCacheInfo(cmd *cobra.Command, args []string) error {
	return withService(func(svc *core.Service) error {
		if _, err := svc.Resolve(cmd.Context(), collectionName); err != nil {
			return fmt.Errorf("resolving: %w", err)
		}
		stats, err := svc.CacheStats()
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(w, cacheInfoJSON(stats))
		}
		fmt.Fprintf(w, "%s %s\n", header("Cache:"), stats.Path)
		fmt.Fprintf(w, "  Files:      %d (%d bytes)\n", stats.Files, stats.Size)
		fmt.Fprintf(w, "  Referenced: %d\n", stats.Referenced)
		if stats.Missing > 0 {
			fmt.Fprintf(w, "  Missing:    %s\n", colorRed(fmt.Sprint(stats.Missing)))
		}
		return nil
	})
}
