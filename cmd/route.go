package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dwellsafe/dwellsafe-cli/internal/safety"
	"github.com/dwellsafe/dwellsafe-cli/pkg/directions"
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Score and rank walking routes",
	Long: `Fetch walking route alternatives between two points, score each
against the active incident batch, and rank them safest / fastest /
balanced.

With --polyline, a single encoded path is scored directly and no
directions API key is needed.

Examples:
  # Rank alternatives between two points
  route --from 40.7128,-74.0060 --to 40.7306,-73.9866

  # Score one encoded polyline
  route --polyline "_p~iF~ps|U_ulLnnqC"`,
	RunE: runRoute,
}

func init() {
	f := routeCmd.Flags()
	f.String("from", "", "origin as lat,lon")
	f.String("to", "", "destination as lat,lon")
	f.String("polyline", "", "encoded polyline to score directly")
	f.Bool("json", false, "output JSON instead of a summary")

	rootCmd.AddCommand(routeCmd)
}

func runRoute(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := cmd.Flags()
	jsonOut, _ := f.GetBool("json")

	if encoded, _ := f.GetString("polyline"); encoded != "" {
		if err := cfg.Validate("area"); err != nil {
			return err
		}

		env, err := initEnv(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		path, err := directions.DecodePolyline(encoded)
		if err != nil {
			return err
		}
		result, err := env.service.ScoreRoute(ctx, path)
		if err != nil {
			return err
		}

		if jsonOut {
			return printJSON(result)
		}
		fmt.Printf("Safety score: %.1f / 100 (grade %s)\n", result.Score, result.Grade)
		fmt.Printf("Samples:      %d\n", result.SampleCount)
		fmt.Printf("Incidents:    %d nearby, %d high-density points\n",
			result.Statistics.TotalIncidents, result.Statistics.HighDensityPoints)
		printHighRiskAreas(result.HighRiskAreas)
		return nil
	}

	if err := cfg.Validate("route"); err != nil {
		return err
	}

	fromStr, _ := f.GetString("from")
	origin, err := parsePoint(fromStr)
	if err != nil {
		return eris.Wrap(err, "parse --from")
	}
	toStr, _ := f.GetString("to")
	destination, err := parsePoint(toStr)
	if err != nil {
		return eris.Wrap(err, "parse --to")
	}

	env, err := initEnv(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	client := directions.NewClient(cfg.Directions.GoogleKey)
	candidates, err := client.Routes(ctx, origin, destination)
	if err != nil {
		return err
	}

	ranking, err := env.service.AnalyzeRoutes(ctx, candidates)
	if err != nil {
		if eris.Is(err, safety.ErrNoRoutes) {
			return eris.New("no walking routes found between those points")
		}
		return err
	}

	if jsonOut {
		return printJSON(ranking)
	}

	for _, r := range ranking.Routes {
		marker := " "
		if r.ID == ranking.SafestID {
			marker = "*"
		}
		fmt.Printf("%s %-9s %-20s score %5.1f (%s)  %4.0fs  %5.0fm  %d high-risk areas\n",
			marker, r.RouteType, r.Summary, r.SafetyScore, r.SafetyGrade,
			r.DurationSeconds, r.DistanceMeters, len(r.HighRiskAreas))
	}
	return nil
}

func printHighRiskAreas(areas []safety.HighRiskArea) {
	if len(areas) == 0 {
		return
	}
	fmt.Println("High-risk areas along the route:")
	for _, a := range areas {
		fmt.Printf("  [%s] %.5f, %.5f  %s\n", a.RiskLevel, a.Lat, a.Lng, a.Description)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parsePoint(s string) (safety.Point, error) {
	var p safety.Point
	if _, err := fmt.Sscanf(s, "%f,%f", &p.Lat, &p.Lon); err != nil {
		return p, eris.Errorf("expected lat,lon, got %q", s)
	}
	return p, nil
}
