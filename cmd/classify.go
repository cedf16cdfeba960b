package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/polyclass/internal/export"
	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/polygon"
	"github.com/sells-group/polyclass/internal/rules"
	"github.com/sells-group/polyclass/internal/sampler"
)

var (
	classifyGeoJSON string
	classifyShp     string
)

var classifyCmd = &cobra.Command{
	Use:   "classify <job.yaml>",
	Short: "Classify a batch of polygons described in a YAML job file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("classify"); err != nil {
			return err
		}

		job, err := loadJob(args[0])
		if err != nil {
			return err
		}
		if job.Field == "" {
			job.Field = cfg.Session.Field
		}

		res, err := runClassify(cmd.Context(), job, buildSampler(cfg.Sampler), cfg.Classify.MaxConcurrent)
		if err != nil {
			return err
		}

		if classifyGeoJSON != "" {
			data, err := export.MarshalGeoJSON(res.polygons)
			if err != nil {
				return err
			}
			if err := os.WriteFile(classifyGeoJSON, data, 0o644); err != nil {
				return eris.Wrapf(err, "classify: write %s", classifyGeoJSON)
			}
		}
		if classifyShp != "" {
			if err := export.WriteShapefile(classifyShp, res.polygons); err != nil {
				return err
			}
		}
		return writeSummary(cmd.OutOrStdout(), res.summary)
	},
}

func init() {
	classifyCmd.Flags().StringVar(&classifyGeoJSON, "geojson", "", "write the classified polygons as GeoJSON to this path")
	classifyCmd.Flags().StringVar(&classifyShp, "shp", "", "write the classified polygons as an ESRI shapefile to this path")
	rootCmd.AddCommand(classifyCmd)
}

// classifyJob is the YAML batch description.
type classifyJob struct {
	Field      string                `yaml:"field"`
	HourOffset int                   `yaml:"hour_offset"`
	Rules      []model.ThresholdRule `yaml:"rules"`
	Shapes     []jobShape            `yaml:"shapes"`
}

type jobShape struct {
	Name     string        `yaml:"name"`
	Vertices []model.Coord `yaml:"vertices"`
}

func loadJob(path string) (classifyJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return classifyJob{}, eris.Wrapf(err, "classify: read job %s", path)
	}
	var job classifyJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return classifyJob{}, eris.Wrapf(err, "classify: parse job %s", path)
	}
	return job, nil
}

// resolver samples a point and reports where the value came from.
type resolver interface {
	polygon.Sampler
	Resolve(ctx context.Context, lat, lon float64, hourOffset int, field string) sampler.Sample
}

type classifySummary struct {
	Field      string            `json:"field"`
	HourOffset int               `json:"hour_offset"`
	Polygons   []classifiedShape `json:"polygons"`
	Rejected   []rejectedShape   `json:"rejected"`
	Colors     map[string]int    `json:"colors"`
	Fallbacks  int               `json:"fallbacks"`
}

type classifiedShape struct {
	Name    string          `json:"name"`
	ID      string          `json:"id"`
	Value   float64         `json:"value"`
	Color   string          `json:"color"`
	Outcome sampler.Outcome `json:"outcome"`
}

type rejectedShape struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type classifyResult struct {
	summary  classifySummary
	polygons []model.Polygon
}

// runClassify samples every admissible shape concurrently and commits them
// in file order, so ids and output order do not depend on sampling speed.
func runClassify(ctx context.Context, job classifyJob, r resolver, maxConcurrent int) (*classifyResult, error) {
	if strings.TrimSpace(job.Field) == "" {
		return nil, eris.New("classify: field is required")
	}
	if err := rules.Validate(job.Rules); err != nil {
		return nil, eris.Wrap(err, "classify: rules")
	}

	store := polygon.NewStore(r)
	summary := classifySummary{
		Field:      job.Field,
		HourOffset: job.HourOffset,
		Polygons:   []classifiedShape{},
		Rejected:   []rejectedShape{},
		Colors:     map[string]int{},
	}

	admitted := make([]bool, len(job.Shapes))
	for i, s := range job.Shapes {
		if err := store.Validate(s.Vertices); err != nil {
			summary.Rejected = append(summary.Rejected, rejectedShape{Name: s.Name, Reason: err.Error()})
			continue
		}
		admitted[i] = true
	}

	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	samples := make([]sampler.Sample, len(job.Shapes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)
	for i, s := range job.Shapes {
		if !admitted[i] {
			continue
		}
		i := i
		first := s.Vertices[0]
		g.Go(func() error {
			samples[i] = r.Resolve(gctx, first.Lat, first.Lon, job.HourOffset, job.Field)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, s := range job.Shapes {
		if !admitted[i] {
			continue
		}
		p := store.Commit(polygon.CreateRequest{
			Vertices:   s.Vertices,
			Field:      job.Field,
			HourOffset: job.HourOffset,
			Rules:      job.Rules,
		}, samples[i].Value)

		summary.Polygons = append(summary.Polygons, classifiedShape{
			Name:    s.Name,
			ID:      p.ID,
			Value:   p.Value,
			Color:   p.Color,
			Outcome: samples[i].Outcome,
		})
		summary.Colors[p.Color]++
		if samples[i].Outcome == sampler.OutcomeFallback {
			summary.Fallbacks++
		}
	}

	zap.L().Info("classify: complete",
		zap.Int("polygons", len(summary.Polygons)),
		zap.Int("rejected", len(summary.Rejected)),
		zap.Int("fallbacks", summary.Fallbacks),
	)
	return &classifyResult{summary: summary, polygons: store.List()}, nil
}

func writeSummary(w io.Writer, s classifySummary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s); err != nil {
		return eris.Wrap(err, "classify: write summary")
	}
	return nil
}
