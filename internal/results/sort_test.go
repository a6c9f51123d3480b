package results

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []Row {
	return []Row{
		{"symbol": "eth", "confidence": 72.0, "risk": "Medium"},
		{"symbol": "BTC", "confidence": 85.0, "risk": "low"},
		{"symbol": "xrp", "confidence": 72.0, "risk": "High"},
		{"symbol": "Sol", "confidence": 9.5},
	}
}

func symbols(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i], _ = r["symbol"].(string)
	}
	return out
}

func TestSort_Numeric(t *testing.T) {
	got := Sort(sampleRows(), "confidence", Asc)
	// 9.5 sorts before 72 numerically even though "9.5" > "72" lexically.
	assert.Equal(t, []string{"Sol", "eth", "xrp", "BTC"}, symbols(got))
}

func TestSort_CaseInsensitiveText(t *testing.T) {
	got := Sort(sampleRows(), "symbol", Asc)
	assert.Equal(t, []string{"BTC", "eth", "Sol", "xrp"}, symbols(got))
}

func TestSort_MissingValuesFirstAscending(t *testing.T) {
	got := Sort(sampleRows(), "risk", Asc)
	assert.Equal(t, []string{"Sol", "xrp", "BTC", "eth"}, symbols(got))
}

func TestSort_DescendingIsExactReverse(t *testing.T) {
	for _, field := range []string{"confidence", "symbol", "risk", "absent"} {
		asc := Sort(sampleRows(), field, Asc)
		desc := Sort(asc, field, Desc)

		require.Len(t, desc, len(asc))
		for i := range asc {
			assert.Equal(t, asc[i], desc[len(desc)-1-i], "field %s index %d", field, i)
		}
	}
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	rows := sampleRows()
	_ = Sort(rows, "symbol", Desc)
	assert.Equal(t, []string{"eth", "BTC", "xrp", "Sol"}, symbols(rows))
}

func TestSort_JSONNumbers(t *testing.T) {
	var rows []Row
	dec := json.NewDecoder(strings.NewReader(`[{"p":100},{"p":20},{"p":3}]`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&rows))

	got := Sort(rows, "p", Asc)
	assert.Equal(t, json.Number("3"), got[0]["p"])
	assert.Equal(t, json.Number("20"), got[1]["p"])
	assert.Equal(t, json.Number("100"), got[2]["p"])
}

func TestCompare(t *testing.T) {
	assert.Equal(t, -1, Compare(2, 10.5, true))
	assert.Equal(t, -1, Compare(nil, 1, true))
	assert.Equal(t, 0, Compare("ABC", "abc", false))
	assert.Equal(t, 1, Compare("b", nil, false))
	assert.Equal(t, -1, Compare(true, "zeta", false))
	// In a text column numbers compare by their string form.
	assert.Equal(t, 1, Compare(2, 10, false))
}

func TestNumericColumn(t *testing.T) {
	assert.True(t, NumericColumn(sampleRows(), "confidence"))
	assert.False(t, NumericColumn(sampleRows(), "risk"))
	assert.False(t, NumericColumn(sampleRows(), "absent"))
	assert.False(t, NumericColumn([]Row{{"c": 72}, {"c": "85%"}}, "c"))
}

func TestSort_MixedColumnIsText(t *testing.T) {
	rows := []Row{{"c": 10}, {"c": "15x"}, {"c": 2}}
	got := Sort(rows, "c", Asc)
	assert.Equal(t, []any{10, "15x", 2}, []any{got[0]["c"], got[1]["c"], got[2]["c"]})
}

func TestSort_MixedColumnDescendingIsExactReverse(t *testing.T) {
	rows := make([]Row, 0, 45)
	for i := 0; i < 45; i++ {
		var v any
		switch i % 3 {
		case 0:
			v = (i * 7) % 31
		case 1:
			v = fmt.Sprintf("%dx", (i*11)%29)
		default:
			if i%2 == 0 {
				v = "n/a"
			} else {
				v = json.Number(fmt.Sprint(i % 13))
			}
		}
		rows = append(rows, Row{"id": i, "c": v})
	}
	rows = append(rows, Row{"id": 99})

	asc := Sort(rows, "c", Asc)
	for i := 1; i < len(asc); i++ {
		assert.LessOrEqual(t, Compare(asc[i-1]["c"], asc[i]["c"], false), 0, "index %d", i)
	}

	desc := Sort(asc, "c", Desc)
	require.Len(t, desc, len(asc))
	for i := range asc {
		assert.Equal(t, asc[i]["id"], desc[len(desc)-1-i]["id"], "index %d", i)
	}
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("")
	require.NoError(t, err)
	assert.Equal(t, Asc, d)

	d, err = ParseDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, Desc, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestSortState_Toggle(t *testing.T) {
	var s SortState
	s = s.Toggle("symbol")
	assert.Equal(t, SortState{Field: "symbol", Direction: Asc}, s)

	s = s.Toggle("symbol")
	assert.Equal(t, SortState{Field: "symbol", Direction: Desc}, s)

	s = s.Toggle("symbol")
	assert.Equal(t, Asc, s.Direction)

	s = s.Toggle("symbol").Toggle("confidence")
	assert.Equal(t, SortState{Field: "confidence", Direction: Asc}, s)
}

func TestSortState_ApplyReverses(t *testing.T) {
	s := SortState{}.Toggle("confidence")
	asc := s.Apply(sampleRows())
	desc := s.Toggle("confidence").Apply(sampleRows())

	assert.Equal(t, []string{"Sol", "eth", "xrp", "BTC"}, symbols(asc))
	assert.Equal(t, []string{"BTC", "xrp", "eth", "Sol"}, symbols(desc))
}
