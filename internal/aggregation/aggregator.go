package aggregation

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/demandcast/demandcast/internal/analytics"
	"github.com/demandcast/demandcast/internal/models"
	"github.com/demandcast/demandcast/internal/utils"
)

// Column names read from observation tables
const (
	ColumnDate  = "date"
	ColumnGroup = "product_id"
)

// DemandColumns is the demand field preference order
var DemandColumns = []string{"quantity", "total_amount", "sales", "demand"}

var (
	// ErrMissingColumn is returned when the timestamp or demand column is absent
	ErrMissingColumn = errors.New("missing required column")
	// ErrEmptyData is returned when no usable demand remains after cleaning
	ErrEmptyData = errors.New("no usable demand data")
)

// CoercionReport counts what cleaning did to the input rows
type CoercionReport struct {
	DemandColumn      string `json:"demand_column"`
	TotalRows         int    `json:"total_rows"`
	DroppedTimestamps int    `json:"dropped_timestamps"` // rows dropped for an unparseable date
	CoercedDemand     int    `json:"coerced_demand"`     // unparseable or missing demand set to 0
	ClippedNegative   int    `json:"clipped_negative"`   // negative demand set to 0
	FilteredByGroup   int    `json:"filtered_by_group"`  // rows removed by the group filter
}

// Observation is a cleaned row
type Observation struct {
	Time   time.Time
	Demand decimal.Decimal
	Group  string
}

// PeriodStats accumulates the observations falling in one period
type PeriodStats struct {
	Start time.Time
	Sum   decimal.Decimal
}

// Add folds one more observation into the period
func (ps *PeriodStats) Add(v decimal.Decimal) {
	ps.Sum = ps.Sum.Add(v)
}

// Aggregator turns observation tables into regular per-period demand series
type Aggregator struct {
	loc *time.Location
}

// NewAggregator creates an aggregator evaluating period boundaries in loc.
// A nil loc means UTC.
func NewAggregator(loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	return &Aggregator{loc: loc}
}

// Location returns the timezone used for period boundaries
func (a *Aggregator) Location() *time.Location {
	return a.loc
}

// ResolveDemandColumn returns the first preferred demand column present
func ResolveDemandColumn(t models.Table) (string, error) {
	for _, col := range DemandColumns {
		if t.HasColumn(col) {
			return col, nil
		}
	}
	return "", fmt.Errorf("%w: none of %s", ErrMissingColumn, strings.Join(DemandColumns, ", "))
}

// Clean validates the columns, drops rows with unparseable dates, coerces demand
// and clips negatives. It fails with ErrEmptyData when no row has positive demand.
func (a *Aggregator) Clean(t models.Table) ([]Observation, CoercionReport, error) {
	report := CoercionReport{TotalRows: t.Len()}

	if !t.HasColumn(ColumnDate) {
		return nil, report, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnDate)
	}
	demandCol, err := ResolveDemandColumn(t)
	if err != nil {
		return nil, report, err
	}
	report.DemandColumn = demandCol

	obs := make([]Observation, 0, t.Len())
	positive := false
	for _, r := range t.Records {
		ts, err := cast.ToTimeInDefaultLocationE(r[ColumnDate], a.loc)
		if err != nil || ts.IsZero() {
			report.DroppedTimestamps++
			continue
		}

		demand, ok := parseDemand(r[demandCol])
		if !ok {
			report.CoercedDemand++
		}
		if demand.IsNegative() {
			report.ClippedNegative++
			demand = decimal.Zero
		}
		if demand.IsPositive() {
			positive = true
		}

		obs = append(obs, Observation{Time: ts, Demand: demand, Group: groupKey(r[ColumnGroup])})
	}

	if !positive {
		return nil, report, fmt.Errorf("%w: no row with positive %s", ErrEmptyData, demandCol)
	}
	return obs, report, nil
}

// FilterGroup keeps the observations of one group. An empty group keeps everything.
func FilterGroup(obs []Observation, group string, report *CoercionReport) ([]Observation, error) {
	if group == "" {
		return obs, nil
	}

	kept := make([]Observation, 0, len(obs))
	for _, o := range obs {
		if o.Group == group {
			kept = append(kept, o)
		}
	}
	if report != nil {
		report.FilteredByGroup = len(obs) - len(kept)
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: no rows for %s %q", ErrEmptyData, ColumnGroup, group)
	}
	return kept, nil
}

// Periods buckets observations by grain and returns per-period stats ascending
func (a *Aggregator) Periods(obs []Observation, grain analytics.Grain) []*PeriodStats {
	buckets := make(map[time.Time]*PeriodStats)
	for _, o := range obs {
		start := grain.Truncate(o.Time, a.loc)
		if ps, ok := buckets[start]; ok {
			ps.Add(o.Demand)
		} else {
			buckets[start] = &PeriodStats{Start: start, Sum: o.Demand}
		}
	}

	periods := make([]*PeriodStats, 0, len(buckets))
	for _, ps := range buckets {
		periods = append(periods, ps)
	}
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Start.Before(periods[j].Start)
	})
	return periods
}

// Aggregate sums demand per period into an ascending series
func (a *Aggregator) Aggregate(obs []Observation, grain analytics.Grain) analytics.TimeSeriesData {
	periods := a.Periods(obs, grain)
	series := make(analytics.TimeSeriesData, len(periods))
	for i, ps := range periods {
		series[i] = analytics.TimeSeriesPoint{Time: ps.Start, Value: ps.Sum.InexactFloat64()}
	}
	return series
}

// Run cleans, filters and aggregates a table in one call
func (a *Aggregator) Run(t models.Table, grain analytics.Grain, group string) (analytics.TimeSeriesData, CoercionReport, error) {
	obs, report, err := a.Clean(t)
	if err != nil {
		return nil, report, err
	}
	obs, err = FilterGroup(obs, group, &report)
	if err != nil {
		return nil, report, err
	}
	return a.Aggregate(obs, grain), report, nil
}

// Groups returns the distinct non-empty group keys of a table, sorted
func Groups(t models.Table) ([]string, error) {
	if !t.HasColumn(ColumnGroup) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, ColumnGroup)
	}

	seen := make(map[string]struct{})
	for _, r := range t.Records {
		if g := groupKey(r[ColumnGroup]); g != "" {
			seen[g] = struct{}{}
		}
	}
	groups := make([]string, 0, len(seen))
	for g := range seen {
		groups = append(groups, g)
	}
	sort.Strings(groups)
	return groups, nil
}

// maxDemandDigits bounds the decimal magnitude of a demand cell. Anything
// outside float64 range is treated as unparseable.
const maxDemandDigits = 308

// parseDemand converts a cell to a decimal. ok is false when the value was
// missing, unparseable or out of float64 range and 0 was substituted.
func parseDemand(v interface{}) (decimal.Decimal, bool) {
	switch val := v.(type) {
	case nil:
		return decimal.Zero, false
	case decimal.Decimal:
		return inRange(val)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(val))
		if err != nil {
			return decimal.Zero, false
		}
		return inRange(d)
	case int:
		return decimal.NewFromInt(int64(val)), true
	case int64:
		return decimal.NewFromInt(val), true
	case int32:
		return decimal.NewFromInt32(val), true
	}

	f, ok := utils.ToFloat64(v)
	if !ok || !utils.IsFinite(f) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

// inRange rejects decimals whose exponent or digit count would make later
// arithmetic and float conversion build enormous integers
func inRange(d decimal.Decimal) (decimal.Decimal, bool) {
	exp := int(d.Exponent())
	if exp > maxDemandDigits || exp < -maxDemandDigits || d.NumDigits()+exp > maxDemandDigits+1 {
		return decimal.Zero, false
	}
	return d, true
}

func groupKey(v interface{}) string {
	if v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
