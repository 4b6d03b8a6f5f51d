package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dwellsafe/dwellsafe-cli/internal/severity"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Fetch the incident feed and show batch statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("feed"); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		snap := env.store.Current()
		fmt.Printf("Fetched %d incidents (%d dropped for bad coordinates) at %s\n",
			snap.Len(), snap.Dropped(), snap.FetchedAt().Format("2006-01-02 15:04:05"))

		byTier := map[severity.Tier]int{}
		byCategory := map[string]int{}
		for _, rec := range snap.Records() {
			byTier[env.classifier.Classify(rec.Category)]++
			byCategory[rec.Category]++
		}

		fmt.Printf("Severity: %d high, %d medium, %d low\n",
			byTier[severity.TierHigh], byTier[severity.TierMedium], byTier[severity.TierLow])

		type catCount struct {
			name  string
			count int
		}
		cats := make([]catCount, 0, len(byCategory))
		for name, count := range byCategory {
			cats = append(cats, catCount{name, count})
		}
		sort.Slice(cats, func(a, b int) bool {
			if cats[a].count != cats[b].count {
				return cats[a].count > cats[b].count
			}
			return cats[a].name < cats[b].name
		})
		if len(cats) > 10 {
			cats = cats[:10]
		}
		fmt.Println("Top categories:")
		for _, c := range cats {
			fmt.Printf("  %6d  %s\n", c.count, c.name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(feedCmd)
}
