package results

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Row is one recommendation as received from the endpoint.
type Row = map[string]any

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc"/"desc" in any case; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(s) {
	case "", "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q, expected asc|desc", s)
	}
}

// Sort returns a sorted copy of rows ordered by field. The descending order is
// the exact reverse of the stable ascending order.
func Sort(rows []Row, field string, dir Direction) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	if field == "" {
		return out
	}

	numeric := NumericColumn(out, field)
	sort.SliceStable(out, func(i, j int) bool {
		return Compare(out[i][field], out[j][field], numeric) < 0
	})

	if dir == Desc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// NumericColumn reports whether every non-missing value of field is a number.
// A single text cell switches the whole column to text ordering.
func NumericColumn(rows []Row, field string) bool {
	seen := false
	for _, r := range rows {
		v := r[field]
		if v == nil {
			continue
		}
		if _, ok := toNumber(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

// Compare orders two cell values of one column. In a numeric column values
// compare as numbers with missing values first; otherwise both compare
// case-insensitively by their string form and missing values are the empty
// string.
func Compare(a, b any, numeric bool) int {
	if numeric {
		fa, aNum := toNumber(a)
		fb, bNum := toNumber(b)
		switch {
		case !aNum && !bNum:
			return 0
		case !aNum:
			return -1
		case !bNum:
			return 1
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(strings.ToLower(toText(a)), strings.ToLower(toText(b)))
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// SortState is the table's current ordering.
type SortState struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction"`
}

// Toggle selects a column: the active column flips direction, a new column
// starts ascending.
func (s SortState) Toggle(field string) SortState {
	if s.Field == field {
		if s.Direction == Asc {
			return SortState{Field: field, Direction: Desc}
		}
		return SortState{Field: field, Direction: Asc}
	}
	return SortState{Field: field, Direction: Asc}
}

// Apply sorts rows by the state's column and direction.
func (s SortState) Apply(rows []Row) []Row {
	return Sort(rows, s.Field, s.Direction)
}
