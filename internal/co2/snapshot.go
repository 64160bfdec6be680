// Package co2 builds CO2 emission snapshots from the Our World in Data CSV.
package co2

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Point is one yearly value
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is a labelled list of points in year order
type Series struct {
	Label  string  `json:"label"`
	Points []Point `json:"points"`
}

// Snapshot pairs yearly emissions with the year-over-year reduction
type Snapshot struct {
	Emissions Series `json:"emissions"`
	Reduction Series `json:"reduction"`
}

// Region selects the rows of the CSV to keep
type Region struct {
	Code  string
	Label string
}

// Supported regions
var (
	World = Region{Code: "OWID_WRL", Label: "World"}
	Korea = Region{Code: "KOR", Label: "Korea"}
)

// matches reports whether a row belongs to the region. The grapher export
// leaves the world code blank, so the world also matches on entity name.
func (r Region) matches(code, entity string) bool {
	if code == r.Code {
		return true
	}
	return r == World && strings.EqualFold(entity, "World")
}

func emptySnapshot(code string) *Snapshot {
	return &Snapshot{
		Emissions: Series{Label: code + " Emissions", Points: []Point{}},
		Reduction: Series{Label: code + " Reduction", Points: []Point{}},
	}
}

// columns holds header positions, -1 when absent
type columns struct {
	entity, code, year, value int
}

func findColumns(header []string) columns {
	idx := func(names ...string) int {
		for _, name := range names {
			for i, h := range header {
				if strings.ToLower(strings.TrimSpace(h)) == name {
					return i
				}
			}
		}
		return -1
	}
	return columns{
		entity: idx("country", "entity"),
		code:   idx("iso_code", "code"),
		year:   idx("year"),
		value:  idx("co2", "co2 (kt)"),
	}
}

func (c columns) usable() bool {
	return c.year >= 0 && c.value >= 0 && (c.code >= 0 || c.entity >= 0)
}

func (c columns) maxIndex() int {
	return max(c.year, c.value, c.code, c.entity)
}

func field(record []string, i int) string {
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// ParseSnapshot reads an OWID CSV and keeps the region's last limit years.
// Both the raw export (country,iso_code,year,co2) and the grapher export
// (Entity,Code,Year,CO2 or "CO2 (kt)") are accepted. An unknown header or an
// empty body yields an empty snapshot. Rows that are short or whose year or
// value do not parse are skipped.
func ParseSnapshot(r io.Reader, region Region, limit int) (*Snapshot, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.ReuseRecord = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return emptySnapshot(region.Code), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := findColumns(header)
	if !cols.usable() {
		return emptySnapshot(region.Code), nil
	}

	var points []Point
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		if len(record) <= cols.maxIndex() {
			continue
		}
		if !region.matches(field(record, cols.code), field(record, cols.entity)) {
			continue
		}
		year, err := strconv.Atoi(field(record, cols.year))
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(field(record, cols.value), 64)
		if err != nil {
			continue
		}
		points = append(points, Point{Year: year, Value: value})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Year < points[j].Year })
	if limit > 0 && len(points) > limit {
		points = points[len(points)-limit:]
	}

	return build(region, points), nil
}

func build(region Region, points []Point) *Snapshot {
	emissions := make([]Point, len(points))
	reduction := make([]Point, len(points))
	for i, p := range points {
		emissions[i] = p
		prev := p.Value
		if i > 0 {
			prev = points[i-1].Value
		}
		reduction[i] = Point{Year: p.Year, Value: max(prev-p.Value, 0)}
	}
	return &Snapshot{
		Emissions: Series{Label: region.Label + " Emissions", Points: emissions},
		Reduction: Series{Label: region.Label + " Reduction", Points: reduction},
	}
}
