package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/agri-dashboard/internal/controller"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

func newWeatherCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weather",
		Short: "Fetch, show or clear the shared weather snapshot",
	}

	var lat, lng float64
	fetch := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch current conditions for a point and share them with every page",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(flags, cmd, func(a *app) error {
				dash := controller.NewDashboard(a.client, nil, a.deps)
				out := dash.FetchWeather(cmd.Context(), lat, lng)
				if out.HasResult {
					printSnapshot(cmd.OutOrStdout(), controller.Snapshot{Record: out.Result, Present: true}, out.Simulated)
					return nil
				}
				return printOutcome(cmd.OutOrStdout(), out)
			})
		},
	}
	fetch.Flags().Float64Var(&lat, "lat", domain.DefaultLat, "Latitude")
	fetch.Flags().Float64Var(&lng, "lng", domain.DefaultLng, "Longitude")

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the shared weather snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(flags, cmd, func(a *app) error {
				snap := controller.NewDashboard(a.client, nil, a.deps).Current(cmd.Context())
				if !snap.Present {
					fmt.Fprintln(cmd.OutOrStdout(), "No weather selected. Run `agridash weather fetch` or `agridash search --select`.")
					return nil
				}
				printSnapshot(cmd.OutOrStdout(), snap, snap.Record.Snapshot.Description == controller.DemoDescription)
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the shared weather snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withSession(flags, cmd, func(a *app) error {
				if err := controller.NewDashboard(a.client, nil, a.deps).Clear(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Weather cleared")
				return nil
			})
		},
	}

	cmd.AddCommand(fetch, show, clearCmd)
	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	var selectN int
	cmd := &cobra.Command{
		Use:   "search <place>",
		Short: "Search for a place and optionally share its weather",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(flags, cmd, func(a *app) error {
				searcher := a.searcher()
				defer searcher.Close()
				dash := controller.NewDashboard(a.client, searcher, a.deps)

				places, err := dash.Search(cmd.Context(), strings.Join(args, " "))
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				if len(places) == 0 {
					fmt.Fprintln(w, "No places found")
					return nil
				}
				for i, p := range places {
					fmt.Fprintf(w, "%d. %s (%.4f, %.4f)\n", i+1, p.DisplayName, p.Lat, p.Lon)
				}
				if selectN == 0 {
					return nil
				}
				if selectN < 0 || selectN > len(places) {
					return fmt.Errorf("--select must be between 1 and %d", len(places))
				}

				out := dash.SelectPlace(cmd.Context(), places[selectN-1])
				if out.HasResult {
					fmt.Fprintln(w)
					printSnapshot(w, controller.Snapshot{Record: out.Result, Present: true}, out.Simulated)
					return nil
				}
				return printOutcome(w, out)
			})
		},
	}
	cmd.Flags().IntVar(&selectN, "select", 0, "Fetch weather for the Nth result")
	return cmd
}

func printSnapshot(w io.Writer, snap controller.Snapshot, simulated bool) {
	s := snap.Record.Snapshot
	fmt.Fprintln(w, s.Description)
	if simulated {
		fmt.Fprintln(w, "  (simulated: the weather service was unreachable)")
	}
	rows := []struct {
		label string
		value *float64
		unit  string
	}{
		{"Temperature", s.Temperature, "°C"},
		{"Humidity", s.Humidity, "%"},
		{"Rainfall", s.Rainfall, "mm"},
		{"Wind speed", s.WindSpeed, "km/h"},
	}
	for _, r := range rows {
		if r.value == nil {
			continue
		}
		fmt.Fprintf(w, "  %-12s %s %s\n", r.label, domain.FormatFloat(r.value), r.unit)
	}
	if s.Lat != nil && s.Lng != nil {
		fmt.Fprintf(w, "  %-12s %s, %s\n", "Location",
			strconv.FormatFloat(*s.Lat, 'f', 4, 64), strconv.FormatFloat(*s.Lng, 'f', 4, 64))
	}
	if !snap.Record.PublishedAt.IsZero() {
		fmt.Fprintf(w, "  %-12s %s\n", "Updated", snap.Record.PublishedAt.Local().Format(time.DateTime))
	}
	if snap.Stale {
		fmt.Fprintln(w, "  Warning: this weather is out of date. Fetch it again for current values.")
	}
}
