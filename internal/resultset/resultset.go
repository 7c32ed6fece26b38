// Package resultset decodes the serialized row sequence returned by run_sql
// and classifies it as empty, tabular or geospatial.
package resultset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/paulmach/orb/geojson"
)

// Shape tags the decoded result.
type Shape int

// Shapes.
const (
	ShapeEmpty Shape = iota
	ShapeTable
	ShapeMap
)

func (s Shape) String() string {
	switch s {
	case ShapeEmpty:
		return "empty"
	case ShapeTable:
		return "table"
	case ShapeMap:
		return "map"
	}
	return "unknown"
}

// geoMarker is the substring that marks a column as holding a shape.
const geoMarker = "geo"

// ErrNotArray is returned when the payload is not a JSON array of objects.
var ErrNotArray = errors.New("result is not an array of row objects")

// Cell is one column value of a row.
type Cell struct {
	Column string
	Value  any
}

// Row is an ordered list of cells, in the order the backend sent them.
type Row []Cell

// Get returns the value of a column.
func (r Row) Get(column string) (any, bool) {
	for _, c := range r {
		if c.Column == column {
			return c.Value, true
		}
	}
	return nil, false
}

// Overlay is one row drawn on the map.
type Overlay struct {
	Features []*geojson.Feature
	Tooltip  []string // "column: value" for every non-geo column
}

// ResultSet is a decoded run_sql payload.
type ResultSet struct {
	Shape    Shape
	Columns  []string // union of columns in first-seen order
	Rows     []Row
	Overlays []Overlay // set when Shape is ShapeMap
}

// IsGeoColumn reports whether a column name marks a shape column.
func IsGeoColumn(name string) bool {
	return strings.Contains(name, geoMarker)
}

// Decode parses a serialized row sequence and classifies it.
//
// A result is a map when at least one row has a geo column and every row
// that has one holds a parseable GeoJSON shape in it; otherwise it is a table.
func Decode(payload string) (*ResultSet, error) {
	rows, columns, err := decodeRows(payload)
	if err != nil {
		return nil, err
	}

	rs := &ResultSet{Columns: columns, Rows: rows}
	if len(rows) == 0 {
		rs.Shape = ShapeEmpty
		return rs, nil
	}

	rs.Shape = ShapeTable
	if overlays, ok := overlaysFor(rows); ok {
		rs.Shape = ShapeMap
		rs.Overlays = overlays
	}
	return rs, nil
}

// FeatureCollection merges all overlays into one collection, for clients
// that draw the map.
func (rs *ResultSet) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, o := range rs.Overlays {
		for _, f := range o.Features {
			fc.Append(f)
		}
	}
	return fc
}

// FormatValue renders a cell value for display.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case json.Number:
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func overlaysFor(rows []Row) ([]Overlay, bool) {
	var overlays []Overlay
	for _, row := range rows {
		col, raw, ok := geoCell(row)
		if !ok {
			continue
		}
		features, err := parseShape(raw)
		if err != nil {
			return nil, false
		}

		var tooltip []string
		for _, c := range row {
			if !IsGeoColumn(c.Column) {
				tooltip = append(tooltip, c.Column+": "+FormatValue(c.Value))
			}
		}
		for _, f := range features {
			for _, c := range row {
				if c.Column == col {
					continue
				}
				f.Properties[c.Column] = c.Value
			}
		}
		overlays = append(overlays, Overlay{Features: features, Tooltip: tooltip})
	}
	return overlays, len(overlays) > 0
}

func geoCell(row Row) (string, any, bool) {
	for _, c := range row {
		if IsGeoColumn(c.Column) {
			return c.Column, c.Value, true
		}
	}
	return "", nil, false
}

// parseShape accepts a GeoJSON geometry, feature or feature collection, either
// as JSON text or already decoded.
func parseShape(v any) ([]*geojson.Feature, error) {
	var data []byte
	switch val := v.(type) {
	case string:
		data = []byte(val)
	case map[string]any:
		b, err := json.Marshal(val)
		if err != nil {
			return nil, err
		}
		data = b
	default:
		return nil, fmt.Errorf("unsupported shape value %T", v)
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("parse shape: %w", err)
	}

	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("parse feature: %w", err)
		}
		if f.Properties == nil {
			f.Properties = geojson.Properties{}
		}
		return []*geojson.Feature{f}, nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("parse feature collection: %w", err)
		}
		if len(fc.Features) == 0 {
			return nil, errors.New("empty feature collection")
		}
		for _, f := range fc.Features {
			if f.Properties == nil {
				f.Properties = geojson.Properties{}
			}
		}
		return fc.Features, nil
	case "":
		return nil, errors.New("shape has no type")
	default:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("parse geometry: %w", err)
		}
		if g.Geometry() == nil {
			return nil, errors.New("empty geometry")
		}
		return []*geojson.Feature{geojson.NewFeature(g.Geometry())}, nil
	}
}

// decodeRows walks the JSON tokens so each row keeps its column order.
func decodeRows(payload string) ([]Row, []string, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("decode result: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, nil, ErrNotArray
	}

	var (
		rows    []Row
		columns []string
		seen    = make(map[string]struct{})
	)
	for dec.More() {
		row, err := decodeRow(dec)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range row {
			if _, ok := seen[c.Column]; !ok {
				seen[c.Column] = struct{}{}
				columns = append(columns, c.Column)
			}
		}
		rows = append(rows, row)
	}

	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("decode result: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("decode result: trailing data after array")
	}
	return rows, columns, nil
}

func decodeRow(dec *json.Decoder) (Row, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, ErrNotArray
	}

	var row Row
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode row: %w", err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decode column %q: %w", key, err)
		}
		var value any
		vd := json.NewDecoder(bytes.NewReader(raw))
		vd.UseNumber()
		if err := vd.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode column %q: %w", key, err)
		}
		row = append(row, Cell{Column: key, Value: value})
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode row: %w", err)
	}
	return row, nil
}
