// Package export renders classified polygons as GeoJSON and ESRI shapefiles.
package export

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/polyclass/internal/model"
)

// Geometry converts vertices to a closed WGS84 polygon (x=lon, y=lat).
func Geometry(vertices []model.Coord) (*geom.Polygon, error) {
	if len(vertices) == 0 {
		return nil, eris.New("export: polygon has no vertices")
	}
	ring := make([]geom.Coord, 0, len(vertices)+1)
	for _, v := range vertices {
		ring = append(ring, geom.Coord{v.Lon, v.Lat})
	}
	if !vertices[0].Equal(vertices[len(vertices)-1]) {
		ring = append(ring, geom.Coord{vertices[0].Lon, vertices[0].Lat})
	}

	poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{ring})
	if err != nil {
		return nil, eris.Wrap(err, "export: build polygon")
	}
	return poly.SetSRID(4326), nil
}

// Feature converts a polygon to a GeoJSON feature carrying its classification.
func Feature(p model.Polygon) (*geojson.Feature, error) {
	g, err := Geometry(p.Vertices)
	if err != nil {
		return nil, eris.Wrapf(err, "export: polygon %s", p.ID)
	}
	return &geojson.Feature{
		ID:       p.ID,
		Geometry: g,
		Properties: map[string]any{
			"color":       p.Color,
			"value":       p.Value,
			"field":       p.Field,
			"hour_offset": p.HourOffset,
		},
	}, nil
}

// FeatureCollection renders polygons in order as a GeoJSON FeatureCollection.
func FeatureCollection(polygons []model.Polygon) (*geojson.FeatureCollection, error) {
	fc := &geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(polygons))}
	for _, p := range polygons {
		f, err := Feature(p)
		if err != nil {
			return nil, err
		}
		fc.Features = append(fc.Features, f)
	}
	return fc, nil
}

// MarshalGeoJSON encodes polygons as a FeatureCollection document.
func MarshalGeoJSON(polygons []model.Polygon) ([]byte, error) {
	fc, err := FeatureCollection(polygons)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(fc)
	if err != nil {
		return nil, eris.Wrap(err, "export: marshal geojson")
	}
	return data, nil
}
