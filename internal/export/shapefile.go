package export

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"github.com/sells-group/polyclass/internal/model"
)

// Attribute columns written alongside each shape.
var shapefileFields = []shp.Field{
	shp.StringField("ID", 40),
	shp.StringField("FIELD", 40),
	shp.FloatField("VALUE", 18, 6),
	shp.StringField("COLOR", 20),
	shp.NumberField("HOUR", 6),
}

// WriteShapefile writes polygons to path (.shp, with .shx and .dbf siblings).
func WriteShapefile(path string, polygons []model.Polygon) error {
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	if err := w.SetFields(shapefileFields); err != nil {
		return eris.Wrap(err, "export: set shapefile fields")
	}

	for _, p := range polygons {
		if len(p.Vertices) == 0 {
			continue
		}
		row := int(w.Write(shapePolygon(p.Vertices)))

		attrs := []any{p.ID, p.Field, p.Value, p.Color, p.HourOffset}
		for i, v := range attrs {
			if err := w.WriteAttribute(row, i, v); err != nil {
				return eris.Wrapf(err, "export: write attribute %d of %s", i, p.ID)
			}
		}
	}
	return nil
}

// shapePolygon builds a single-ring shapefile polygon. Shapefile outer rings
// are closed and clockwise.
func shapePolygon(vertices []model.Coord) *shp.Polygon {
	pts := make([]shp.Point, 0, len(vertices)+1)
	for _, v := range vertices {
		pts = append(pts, shp.Point{X: v.Lon, Y: v.Lat})
	}
	if pts[0] != pts[len(pts)-1] {
		pts = append(pts, pts[0])
	}
	if signedArea(pts) > 0 {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	poly := shp.Polygon(*shp.NewPolyLine([][]shp.Point{pts}))
	return &poly
}

// signedArea is positive for counter-clockwise rings.
func signedArea(pts []shp.Point) float64 {
	var sum float64
	for i := 0; i < len(pts)-1; i++ {
		sum += pts[i].X*pts[i+1].Y - pts[i+1].X*pts[i].Y
	}
	return sum / 2
}
