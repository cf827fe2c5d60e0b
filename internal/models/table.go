package models

import "sort"

// Record is one observation keyed by column name. Values may be strings,
// numbers, time.Time, or nil.
type Record map[string]interface{}

// Table is a batch of observations with its declared columns
type Table struct {
	Columns []string `json:"columns,omitempty"`
	Records []Record `json:"records"`
}

// ColumnNames returns the declared columns, or the sorted union of record keys
// when none were declared
func (t Table) ColumnNames() []string {
	if len(t.Columns) > 0 {
		return t.Columns
	}

	seen := make(map[string]struct{})
	for _, r := range t.Records {
		for k := range r {
			seen[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// HasColumn reports whether name is one of the table's columns
func (t Table) HasColumn(name string) bool {
	for _, c := range t.ColumnNames() {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of records
func (t Table) Len() int {
	return len(t.Records)
}
