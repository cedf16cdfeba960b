package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/polyclass/internal/model"
	"github.com/sells-group/polyclass/internal/rules"
	"github.com/sells-group/polyclass/internal/sampler"
)

const jobYAML = `
field: temperature_2m
hour_offset: -24
rules:
  - operator: ">"
    value: 30
    color: red
  - operator: ">"
    value: 20
    color: orange
shapes:
  - name: hot
    vertices:
      - {lat: 35, lon: 10}
      - {lat: 35.5, lon: 10}
      - {lat: 35.5, lon: 10.5}
  - name: sliver
    vertices:
      - {lat: 1, lon: 1}
      - {lat: 2, lon: 2}
  - name: warm
    vertices:
      - {lat: 25, lon: 10}
      - {lat: 25.5, lon: 10}
      - {lat: 25.5, lon: 10.5}
      - {lat: 25, lon: 10.5}
  - name: mild
    vertices:
      - {lat: 5, lon: 10}
      - {lat: 5.5, lon: 10}
      - {lat: 5.5, lon: 10.5}
`

func writeJob(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(jobYAML), 0o644))
	return path
}

func TestLoadJob(t *testing.T) {
	job, err := loadJob(writeJob(t, t.TempDir()))
	require.NoError(t, err)

	assert.Equal(t, "temperature_2m", job.Field)
	assert.Equal(t, -24, job.HourOffset)
	assert.Equal(t, []model.ThresholdRule{
		{Operator: model.OpGreater, Value: 30, Color: "red"},
		{Operator: model.OpGreater, Value: 20, Color: "orange"},
	}, job.Rules)
	require.Len(t, job.Shapes, 4)
	assert.Equal(t, "warm", job.Shapes[2].Name)
	assert.Equal(t, model.Coord{Lat: 25, Lon: 10}, job.Shapes[2].Vertices[0])
}

func TestLoadJob_Errors(t *testing.T) {
	_, err := loadJob(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("shapes: {"), 0o644))
	_, err = loadJob(bad)
	assert.Error(t, err)
}

func TestRunClassify_Live(t *testing.T) {
	srv, _ := forecastServer(t)
	job, err := loadJob(writeJob(t, t.TempDir()))
	require.NoError(t, err)

	res, err := runClassify(context.Background(), job, buildSampler(testSamplerConfig(srv.URL)), 2)
	require.NoError(t, err)

	s := res.summary
	require.Len(t, s.Polygons, 3)
	assert.Equal(t, []string{"hot", "warm", "mild"}, []string{s.Polygons[0].Name, s.Polygons[1].Name, s.Polygons[2].Name})
	assert.Equal(t, "red", s.Polygons[0].Color)
	assert.Equal(t, "orange", s.Polygons[1].Color)
	assert.Equal(t, rules.DefaultColor, s.Polygons[2].Color)
	assert.Equal(t, 35.0, s.Polygons[0].Value)
	for _, p := range s.Polygons {
		assert.Equal(t, sampler.OutcomeLive, p.Outcome)
		assert.NotEmpty(t, p.ID)
	}

	require.Len(t, s.Rejected, 1)
	assert.Equal(t, "sliver", s.Rejected[0].Name)
	assert.Contains(t, s.Rejected[0].Reason, "got 2")

	assert.Equal(t, map[string]int{"red": 1, "orange": 1, rules.DefaultColor: 1}, s.Colors)
	assert.Equal(t, 0, s.Fallbacks)

	require.Len(t, res.polygons, 3)
	assert.Equal(t, s.Polygons[1].ID, res.polygons[1].ID, "polygons follow file order")
}

func TestRunClassify_FallbackWhenUnreachable(t *testing.T) {
	job, err := loadJob(writeJob(t, t.TempDir()))
	require.NoError(t, err)
	job.Rules = []model.ThresholdRule{{Operator: model.OpLess, Value: 0, Color: "blue"}}

	res, err := runClassify(context.Background(), job, buildSampler(testSamplerConfig("http://127.0.0.1:1")), 4)
	require.NoError(t, err)

	assert.Equal(t, 3, res.summary.Fallbacks)
	for _, p := range res.summary.Polygons {
		assert.Equal(t, -1.0, p.Value)
		assert.Equal(t, "blue", p.Color)
		assert.Equal(t, sampler.OutcomeFallback, p.Outcome)
	}
}

func TestRunClassify_InvalidJob(t *testing.T) {
	a := buildSampler(testSamplerConfig("http://127.0.0.1:1"))

	_, err := runClassify(context.Background(), classifyJob{Field: " "}, a, 1)
	assert.Error(t, err)

	_, err = runClassify(context.Background(), classifyJob{
		Field: "temperature_2m",
		Rules: []model.ThresholdRule{{Operator: "=>", Value: 1, Color: "x"}},
	}, a, 1)
	assert.True(t, errors.Is(err, model.ErrUnknownOperator))
}

func TestClassifyCommand_EndToEnd(t *testing.T) {
	srv, _ := forecastServer(t)

	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	t.Setenv("POLYCLASS_SAMPLER_BASE_URL", srv.URL)
	t.Setenv("POLYCLASS_LOG_LEVEL", "error")

	jobPath := writeJob(t, dir)
	geojsonPath := filepath.Join(dir, "out.geojson")
	shpPath := filepath.Join(dir, "out.shp")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"classify", jobPath, "--geojson", geojsonPath, "--shp", shpPath})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		classifyGeoJSON, classifyShp = "", ""
	})
	require.NoError(t, rootCmd.Execute())

	var summary classifySummary
	require.NoError(t, json.Unmarshal(out.Bytes(), &summary))
	assert.Len(t, summary.Polygons, 3)
	assert.Len(t, summary.Rejected, 1)

	data, err := os.ReadFile(geojsonPath)
	require.NoError(t, err)
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &fc))
	assert.Len(t, fc.Features, 3)

	r, err := shp.Open(shpPath)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	var shapes int
	for r.Next() {
		shapes++
	}
	assert.Equal(t, 3, shapes)
}
