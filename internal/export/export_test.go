package export

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/polyclass/internal/model"
)

func triangle() []model.Coord {
	return []model.Coord{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}}
}

func TestGeometry_ClosesRingInLonLatOrder(t *testing.T) {
	g, err := Geometry([]model.Coord{{Lat: 28.6, Lon: 77.2}, {Lat: 28.7, Lon: 77.2}, {Lat: 28.7, Lon: 77.3}})
	require.NoError(t, err)

	coords := g.Coords()
	require.Len(t, coords, 1)
	require.Len(t, coords[0], 4)
	assert.Equal(t, 77.2, coords[0][0].X())
	assert.Equal(t, 28.6, coords[0][0].Y())
	assert.Equal(t, coords[0][0], coords[0][3])
	assert.Equal(t, 4326, g.SRID())
}

func TestGeometry_AlreadyClosed(t *testing.T) {
	closed := append(triangle(), model.Coord{Lat: 0, Lon: 0})
	g, err := Geometry(closed)
	require.NoError(t, err)
	assert.Len(t, g.Coords()[0], 4)
}

func TestGeometry_Empty(t *testing.T) {
	_, err := Geometry(nil)
	assert.Error(t, err)
}

func TestMarshalGeoJSON(t *testing.T) {
	polys := []model.Polygon{
		{ID: "a", Vertices: triangle(), Field: "temperature_2m", Color: "orange", Value: 25, HourOffset: -24},
		{ID: "b", Vertices: triangle(), Field: "temperature_2m", Color: "gray", Value: 3},
	}
	data, err := MarshalGeoJSON(polys)
	require.NoError(t, err)

	var doc struct {
		Type     string `json:"type"`
		Features []struct {
			ID       string `json:"id"`
			Geometry struct {
				Type        string         `json:"type"`
				Coordinates [][][2]float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, "FeatureCollection", doc.Type)
	require.Len(t, doc.Features, 2)
	f := doc.Features[0]
	assert.Equal(t, "a", f.ID)
	assert.Equal(t, "Polygon", f.Geometry.Type)
	assert.Len(t, f.Geometry.Coordinates[0], 4)
	assert.Equal(t, "orange", f.Properties["color"])
	assert.Equal(t, 25.0, f.Properties["value"])
	assert.Equal(t, -24.0, f.Properties["hour_offset"])
	assert.Equal(t, "b", doc.Features[1].ID)
}

func TestMarshalGeoJSON_Empty(t *testing.T) {
	data, err := MarshalGeoJSON(nil)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"FeatureCollection"`)
}

func TestWriteShapefile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polygons.shp")
	polys := []model.Polygon{
		{ID: "a", Vertices: triangle(), Field: "temperature_2m", Color: "#ff0000", Value: 25.5, HourOffset: -24},
		{ID: "b", Vertices: []model.Coord{{Lat: 5, Lon: 5}, {Lat: 5, Lon: 6}, {Lat: 6, Lon: 6}, {Lat: 6, Lon: 5}}, Field: "rain", Color: "gray", Value: 0},
	}
	require.NoError(t, WriteShapefile(path, polys))

	r, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	fieldIdx := map[string]int{}
	for i, f := range r.Fields() {
		fieldIdx[strings.TrimRight(f.String(), "\x00")] = i
	}
	attr := func(name string) string {
		return strings.TrimSpace(strings.TrimRight(r.Attribute(fieldIdx[name]), "\x00"))
	}

	var ids, colors []string
	var numPoints []int
	for r.Next() {
		_, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		require.True(t, ok)
		numPoints = append(numPoints, int(poly.NumPoints))
		ids = append(ids, attr("ID"))
		colors = append(colors, attr("COLOR"))
	}

	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, []string{"#ff0000", "gray"}, colors)
	assert.Equal(t, []int{4, 5}, numPoints, "rings are closed")
}

func TestShapePolygon_Clockwise(t *testing.T) {
	// Counter-clockwise input in lon/lat space.
	ccw := []model.Coord{{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}}
	poly := shapePolygon(ccw)
	assert.Less(t, signedArea(poly.Points), 0.0)

	cw := []model.Coord{{Lat: 1, Lon: 1}, {Lat: 0, Lon: 1}, {Lat: 0, Lon: 0}}
	poly = shapePolygon(cw)
	assert.Less(t, signedArea(poly.Points), 0.0)
}
