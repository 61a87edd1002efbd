package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/suno-sync-go/internal/app"
	"github.com/yourusername/suno-sync-go/internal/infrastructure"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Recompute and print the missing/extra report from the current cache",
	Run: func(cmd *cobra.Command, args []string) {
		write, _ := cmd.Flags().GetBool("write")
		showMissing, _ := cmd.Flags().GetBool("missing")
		showExtra, _ := cmd.Flags().GetBool("extra")

		config, err := loadConfig()
		if err != nil {
			fatal("Failed to load config: %v", err)
		}

		outDir := config.Fetch.OutDir
		cacheDir := config.Fetch.ResolvedCacheDir()

		store, err := infrastructure.NewFilePageStore(cacheDir)
		if err != nil {
			fatal("Failed to open cache: %v", err)
		}

		rec, err := app.NewReconciler(store, outDir).Reconcile()
		if err != nil {
			fatal("Failed to reconcile: %v", err)
		}

		complete, err := store.IsFullyFetched()
		if err != nil {
			fatal("Failed to inspect cache: %v", err)
		}

		fmt.Println("Sync Report:")
		fmt.Printf("  Cached clips (raw):    %d\n", rec.RawClips)
		fmt.Printf("  Cached clips (unique): %d\n", len(rec.Clips))
		fmt.Printf("  Local files:           %d\n", rec.LocalFiles)
		fmt.Printf("  Missing:               %d\n", len(rec.Missing))
		fmt.Printf("  Extra:                 %d\n", len(rec.Extra))
		fmt.Printf("  Complete feed cache:   %v\n", complete)

		if showMissing {
			fmt.Println("\nMissing files:")
			for _, m := range rec.Missing {
				fmt.Printf("  %s\n", m.Filename)
			}
		}
		if showExtra {
			fmt.Println("\nExtra files:")
			for _, name := range rec.Extra {
				fmt.Printf("  %s\n", name)
			}
		}

		if write {
			sum := app.BuildSummary(newRunID(), nil, rec, outDir, cacheDir)
			sum.CompleteAPIFetch = complete
			if prev, err := app.LoadSummary(outDir); err == nil && prev != nil {
				sum.StopReason = prev.StopReason
				sum.LastPageReached = prev.LastPageReached
				sum.HeadSync = prev.HeadSync
				sum.HeadShiftedClips = prev.HeadShiftedClips
			}
			if err := app.NewReportWriter(outDir).Write(sum, rec); err != nil {
				fatal("Failed to write reports: %v", err)
			}
			fmt.Printf("\nReports written to %s\n", outDir)
		}
	},
}

func init() {
	reportCmd.Flags().Bool("write", false, "Also write the report files to the output directory")
	reportCmd.Flags().Bool("missing", false, "List missing filenames")
	reportCmd.Flags().Bool("extra", false, "List extra filenames")
}
