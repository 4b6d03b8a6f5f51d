package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

var boroughsCmd = &cobra.Command{
	Use:   "boroughs",
	Short: "Compare safety across boroughs in the active batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("area"); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		ratings := env.service.CompareBoroughs()
		if len(ratings) == 0 {
			fmt.Println("No borough data in the active batch.")
			return nil
		}

		names := make([]string, 0, len(ratings))
		for name := range ratings {
			names = append(names, name)
		}
		sort.Slice(names, func(a, b int) bool {
			return ratings[names[a]].Score > ratings[names[b]].Score
		})

		fmt.Printf("%-15s %6s  %5s  %10s  %8s\n", "BOROUGH", "SCORE", "GRADE", "COMPLAINTS", "PER DAY")
		for _, name := range names {
			r := ratings[name]
			fmt.Printf("%-15s %6.1f  %5s  %10d  %8.2f\n",
				name, r.Score, r.Grade, r.TotalComplaints, r.ComplaintsPerDay)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(boroughsCmd)
}
