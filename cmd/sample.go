package main

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var (
	sampleLat   float64
	sampleLon   float64
	sampleHour  int
	sampleField string
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Sample the forecast field at one point",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sample"); err != nil {
			return err
		}
		field := sampleField
		if field == "" {
			field = cfg.Session.Field
		}

		s := buildSampler(cfg.Sampler).Resolve(cmd.Context(), sampleLat, sampleLon, sampleHour, field)

		out := struct {
			Field   string  `json:"field"`
			Lat     float64 `json:"lat"`
			Lon     float64 `json:"lon"`
			Hour    int     `json:"hour"`
			Value   float64 `json:"value"`
			Outcome string  `json:"outcome"`
			Error   string  `json:"error,omitempty"`
		}{
			Field:   field,
			Lat:     sampleLat,
			Lon:     sampleLon,
			Hour:    s.Hour,
			Value:   s.Value,
			Outcome: string(s.Outcome),
		}
		if s.Err != nil {
			out.Error = s.Err.Error()
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "sample: write result")
		}
		return nil
	},
}

func init() {
	sampleCmd.Flags().Float64Var(&sampleLat, "lat", 0, "latitude")
	sampleCmd.Flags().Float64Var(&sampleLon, "lon", 0, "longitude")
	sampleCmd.Flags().IntVar(&sampleHour, "hour", 0, "hour offset from now")
	sampleCmd.Flags().StringVar(&sampleField, "field", "", "forecast field (default from config)")
	_ = sampleCmd.MarkFlagRequired("lat")
	_ = sampleCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(sampleCmd)
}
