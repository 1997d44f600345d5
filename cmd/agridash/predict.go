package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/agri-dashboard/internal/controller"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
)

// fieldFlags are string flags that override prefilled form fields when set.
type fieldFlags struct {
	cmd  *cobra.Command
	vals map[string]*string
}

func addFieldFlags(cmd *cobra.Command, names ...string) fieldFlags {
	f := fieldFlags{cmd: cmd, vals: make(map[string]*string, len(names))}
	for _, name := range names {
		f.vals[name] = cmd.Flags().String(name, "", strings.ReplaceAll(name, "-", " "))
	}
	return f
}

// apply copies every flag the user set into its target field.
func (f fieldFlags) apply(targets map[string]*string) {
	for name, dst := range targets {
		if f.cmd.Flags().Changed(name) {
			*dst = *f.vals[name]
		}
	}
}

func newPredictCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a prediction; unset fields are prefilled from the shared weather",
	}
	cmd.AddCommand(
		newCropCmd(flags),
		newYieldCmd(flags),
		newStressCmd(flags),
		newFertilizerCmd(flags),
		newSprayCmd(flags),
	)
	return cmd
}

func newCropCmd(flags *rootFlags) *cobra.Command {
	var lat, lng float64
	cmd := &cobra.Command{
		Use:   "crop",
		Short: "Recommend a crop from soil and weather values, or for a map point with --lat/--lng",
	}
	fields := addFieldFlags(cmd, "nitrogen", "phosphorus", "potassium", "temperature", "humidity", "ph", "rainfall", "ozone")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude (selects map mode)")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude (selects map mode)")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withSession(flags, cmd, func(a *app) error {
			ctx := cmd.Context()
			crop := controller.NewCrop(a.client, a.deps)
			form := crop.Form(ctx)

			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				loc, err := crop.SelectLocation(ctx, lat, lng)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				}
				form.Mode, form.Location = controller.CropModeMap, loc
				in := &form.Location
				fields.apply(map[string]*string{
					"nitrogen": &in.Nitrogen, "phosphorus": &in.Phosphorus, "potassium": &in.Potassium,
					"temperature": &in.Temperature, "humidity": &in.Humidity, "ph": &in.PH,
					"rainfall": &in.Rainfall, "ozone": &in.Ozone,
				})
			} else {
				form.Mode = controller.CropModeManual
				in := &form.Manual
				fields.apply(map[string]*string{
					"nitrogen": &in.Nitrogen, "phosphorus": &in.Phosphorus, "potassium": &in.Potassium,
					"temperature": &in.Temperature, "humidity": &in.Humidity, "ph": &in.PH,
					"rainfall": &in.Rainfall, "ozone": &in.Ozone,
				})
			}
			return printOutcome(cmd.OutOrStdout(), crop.Submit(ctx, form))
		})
	}
	return cmd
}

func newYieldCmd(flags *rootFlags) *cobra.Command {
	var manual bool
	cmd := &cobra.Command{
		Use:   "yield",
		Short: "Predict the yield of a crop",
	}
	fields := addFieldFlags(cmd, "crop", "area", "soil-moisture", "ozone", "temperature", "humidity", "rainfall", "lat", "lng")
	cmd.Flags().BoolVar(&manual, "manual-weather", false, "Send the typed weather instead of looking it up")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withSession(flags, cmd, func(a *app) error {
			ctx := cmd.Context()
			yield := controller.NewYield(a.client, a.deps)
			in := yield.Form(ctx).Input
			fields.apply(map[string]*string{
				"crop": &in.Crop, "area": &in.Area, "soil-moisture": &in.SoilMoisture, "ozone": &in.Ozone,
				"temperature": &in.Temperature, "humidity": &in.Humidity, "rainfall": &in.Rainfall,
				"lat": &in.Lat, "lng": &in.Lng,
			})
			in.ManualWeather = manual
			return printOutcome(cmd.OutOrStdout(), yield.Submit(ctx, in))
		})
	}
	return cmd
}

func newStressCmd(flags *rootFlags) *cobra.Command {
	var manual bool
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Assess crop stress",
	}
	fields := addFieldFlags(cmd, "soil-moisture", "ozone", "temperature", "humidity", "rainfall", "wind-speed", "lat", "lng")
	cmd.Flags().BoolVar(&manual, "manual-weather", false, "Send the typed weather instead of looking it up")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withSession(flags, cmd, func(a *app) error {
			ctx := cmd.Context()
			stress := controller.NewStress(a.client, a.deps)
			in := stress.Form(ctx).Input
			fields.apply(map[string]*string{
				"soil-moisture": &in.SoilMoisture, "ozone": &in.Ozone, "temperature": &in.Temperature,
				"humidity": &in.Humidity, "rainfall": &in.Rainfall, "wind-speed": &in.WindSpeed,
				"lat": &in.Lat, "lng": &in.Lng,
			})
			in.ManualWeather = manual
			return printOutcome(cmd.OutOrStdout(), stress.Submit(ctx, in))
		})
	}
	return cmd
}

func newFertilizerCmd(flags *rootFlags) *cobra.Command {
	var manual bool
	cmd := &cobra.Command{
		Use:   "fertilizer",
		Short: "Recommend a fertilizer for soil nutrient levels",
	}
	fields := addFieldFlags(cmd, "nitrogen", "phosphorus", "potassium", "crop", "soil-moisture",
		"temperature", "humidity", "rainfall", "lat", "lng")
	cmd.Flags().BoolVar(&manual, "manual-weather", false, "Send the typed weather instead of looking it up")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withSession(flags, cmd, func(a *app) error {
			ctx := cmd.Context()
			fert := controller.NewFertilizer(a.client, a.deps)
			in := fert.Form(ctx).Input
			fields.apply(map[string]*string{
				"nitrogen": &in.Nitrogen, "phosphorus": &in.Phosphorus, "potassium": &in.Potassium,
				"crop": &in.Crop, "soil-moisture": &in.SoilMoisture, "temperature": &in.Temperature,
				"humidity": &in.Humidity, "rainfall": &in.Rainfall, "lat": &in.Lat, "lng": &in.Lng,
			})
			in.ManualWeather = manual
			return printOutcome(cmd.OutOrStdout(), fert.Submit(ctx, in))
		})
	}
	return cmd
}

func newSprayCmd(flags *rootFlags) *cobra.Command {
	var (
		useWeather bool
		lat, lng   float64
	)
	cmd := &cobra.Command{
		Use:   "spray",
		Short: "Check whether conditions are safe for spraying",
	}
	fields := addFieldFlags(cmd, "temperature", "humidity", "wind-speed", "rainfall", "time-of-day")
	cmd.Flags().BoolVar(&useWeather, "use-weather", false, "Fetch current conditions for --lat/--lng first")
	cmd.Flags().Float64Var(&lat, "lat", domain.DefaultLat, "Latitude for --use-weather")
	cmd.Flags().Float64Var(&lng, "lng", domain.DefaultLng, "Longitude for --use-weather")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		return withSession(flags, cmd, func(a *app) error {
			ctx := cmd.Context()
			spray := controller.NewSpray(a.client, a.deps)
			form := spray.Form(ctx)
			if useWeather {
				filled, err := spray.UseCurrentWeather(ctx, lat, lng, form.Input.TimeOfDay)
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
				} else {
					form = filled
				}
			}
			in := form.Input
			fields.apply(map[string]*string{
				"temperature": &in.Temperature, "humidity": &in.Humidity, "wind-speed": &in.WindSpeed,
				"rainfall": &in.Rainfall, "time-of-day": &in.TimeOfDay,
			})
			return printOutcome(cmd.OutOrStdout(), spray.Submit(ctx, in))
		})
	}
	return cmd
}

func newDiseaseCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "disease fruit|leaf <image>",
		Short:     "Detect disease in a fruit or leaf photo (PNG or JPEG)",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"fruit", "leaf"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(flags, cmd, func(a *app) error {
				var d *controller.Disease
				switch args[0] {
				case "fruit":
					d = controller.NewFruitDisease(a.client, a.deps)
				case "leaf":
					d = controller.NewLeafDisease(a.client, a.deps)
				default:
					return fmt.Errorf("unknown kind %q: use fruit or leaf", args[0])
				}
				img, err := readImageFile(args[1])
				if err != nil {
					return err
				}
				return printOutcome(cmd.OutOrStdout(), d.Submit(cmd.Context(), img))
			})
		},
	}
}

// readImageFile loads a photo, refusing files over the upload limit before
// reading them.
func readImageFile(path string) (*domain.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	if info.Size() > controller.MaxImageBytes {
		return nil, controller.ErrImageTooLarge
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &domain.Image{
		Filename:    filepath.Base(path),
		ContentType: http.DetectContentType(data),
		Data:        data,
	}, nil
}

func newChatCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "chat <message>",
		Short: "Ask the farming assistant",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(flags, cmd, func(a *app) error {
				chat := controller.NewChat(a.client, a.deps)
				out := chat.Send(cmd.Context(), strings.Join(args, " "))
				w := cmd.OutOrStdout()
				if !out.HasResult {
					return printOutcome(w, out)
				}
				if out.Simulated {
					fmt.Fprintln(w, "(simulated reply: the assistant is unreachable)")
				}
				fmt.Fprintln(w, out.Result.Text)
				return nil
			})
		},
	}
}
