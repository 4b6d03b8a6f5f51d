package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dwellsafe/dwellsafe-cli/pkg/geocode"
)

var areaCmd = &cobra.Command{
	Use:   "area",
	Short: "Score the safety of an area",
	Long: `Score the area around a point from the active incident batch.

The point can be given as coordinates or as an address; addresses are
resolved through the Census geocoder with Google as a fallback when a key
is configured.

Examples:
  # Score by coordinates
  area --lat 40.7128 --lon -74.0060

  # Score by address
  area --address "350 5th Ave" --city "New York" --state NY

  # Machine-readable output
  area --lat 40.7128 --lon -74.0060 --json`,
	RunE: runArea,
}

func init() {
	f := areaCmd.Flags()
	f.Float64("lat", 0, "latitude")
	f.Float64("lon", 0, "longitude")
	f.String("address", "", "street address (alternative to --lat/--lon)")
	f.String("city", "", "city for address lookup")
	f.String("state", "", "state for address lookup")
	f.String("zip", "", "zip code for address lookup")
	f.Bool("json", false, "output JSON instead of a summary")

	rootCmd.AddCommand(areaCmd)
}

func runArea(cmd *cobra.Command, _ []string) error {
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

	f := cmd.Flags()
	lat, _ := f.GetFloat64("lat")
	lon, _ := f.GetFloat64("lon")

	if address, _ := f.GetString("address"); address != "" {
		city, _ := f.GetString("city")
		state, _ := f.GetString("state")
		zip, _ := f.GetString("zip")

		result, err := env.buildGeocoder(cfg).Geocode(ctx, geocode.AddressInput{
			Street: address, City: city, State: state, ZipCode: zip,
		})
		if err != nil {
			return eris.Wrap(err, "geocode address")
		}
		if !result.Matched {
			return eris.New("address could not be geocoded")
		}
		lat, lon = result.Latitude, result.Longitude
		fmt.Printf("Resolved to %.5f, %.5f (%s)\n", lat, lon, result.Source)
	} else if !f.Changed("lat") || !f.Changed("lon") {
		return eris.New("either --lat/--lon or --address is required")
	}

	rating := env.service.ScoreArea(lat, lon)

	if jsonOut, _ := f.GetBool("json"); jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rating)
	}

	fmt.Printf("Borough:        %s\n", env.resolver.Resolve(lat, lon))
	fmt.Printf("Safety score:   %.1f / 100 (grade %s)\n", rating.Score, rating.Grade)
	fmt.Printf("Complaints:     %d", rating.TotalComplaints)
	if rating.Insufficient {
		fmt.Printf(" (not enough data, defaults applied)")
	}
	fmt.Println()
	fmt.Printf("High concern:   %.0f%%\n", rating.HighConcernRatio*100)
	fmt.Printf("Per day:        %.2f\n", rating.ComplaintsPerDay)
	if top := rating.TopCategories(3); len(top) > 0 {
		fmt.Printf("Top categories: ")
		for i, cat := range top {
			if i > 0 {
				fmt.Print(", ")
			}
			fmt.Printf("%s (%d)", cat, rating.ByCategory[cat])
		}
		fmt.Println()
	}
	return nil
}
