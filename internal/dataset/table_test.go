package dataset

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func surveyFixture(t *testing.T) *Table {
	t.Helper()
	table := New("Field_ID", "Crop_type", "Annual_yield", "Elevation")
	require.NoError(t, table.AppendRow([]any{1.0, 1.2, "wheatn", -450.0}))
	require.NoError(t, table.AppendRow([]any{2.0, 0.8, "tea", 120.0}))
	return table
}

func TestSwapColumnLabels(t *testing.T) {
	t.Run("data moves with the label exchange", func(t *testing.T) {
		table := surveyFixture(t)
		require.NoError(t, table.SwapColumnLabels("Crop_type", "Annual_yield"))

		crop, err := table.Cell(0, "Crop_type")
		require.NoError(t, err)
		assert.Equal(t, "wheatn", crop)

		yield, err := table.Cell(0, "Annual_yield")
		require.NoError(t, err)
		assert.Equal(t, 1.2, yield)
	})

	t.Run("swapping twice restores the original table", func(t *testing.T) {
		table := surveyFixture(t)
		original := surveyFixture(t)

		require.NoError(t, table.SwapColumnLabels("Crop_type", "Annual_yield"))
		require.NoError(t, table.SwapColumnLabels("Crop_type", "Annual_yield"))

		assert.Equal(t, original.Columns(), table.Columns())
		for i := 0; i < original.NumRows(); i++ {
			if diff := cmp.Diff(original.Row(i), table.Row(i)); diff != "" {
				t.Errorf("row %d mismatch (-want +got):\n%s", i, diff)
			}
		}
	})

	t.Run("sentinel label never collides", func(t *testing.T) {
		table := New("A", "B", "A__swap", "A__swap_")
		require.NoError(t, table.AppendRow([]any{"a", "b", "s1", "s2"}))
		require.NoError(t, table.SwapColumnLabels("A", "B"))

		assert.Equal(t, []string{"B", "A", "A__swap", "A__swap_"}, table.Columns())
		a, err := table.Cell(0, "A")
		require.NoError(t, err)
		assert.Equal(t, "b", a)
	})

	t.Run("missing column fails", func(t *testing.T) {
		table := surveyFixture(t)
		assert.Error(t, table.SwapColumnLabels("Crop_type", "Nope"))
	})
}

func TestApplyValueMapping(t *testing.T) {
	mapping := map[string]string{"wheatn": "wheat", "teaa": "tea", "cassaval": "cassava"}

	t.Run("mapped values canonicalized, unmapped pass through", func(t *testing.T) {
		table := New("Crop_type")
		require.NoError(t, table.AppendRow([]any{"wheatn"}))
		require.NoError(t, table.AppendRow([]any{"maize"}))
		require.NoError(t, table.AppendRow([]any{nil}))

		require.NoError(t, table.ApplyValueMapping("Crop_type", mapping))

		v, _ := table.Cell(0, "Crop_type")
		assert.Equal(t, "wheat", v)
		v, _ = table.Cell(1, "Crop_type")
		assert.Equal(t, "maize", v)
		v, _ = table.Cell(2, "Crop_type")
		assert.Nil(t, v)
	})

	t.Run("idempotent", func(t *testing.T) {
		table := New("Crop_type")
		require.NoError(t, table.AppendRow([]any{"teaa"}))

		require.NoError(t, table.ApplyValueMapping("Crop_type", mapping))
		require.NoError(t, table.ApplyValueMapping("Crop_type", mapping))

		v, _ := table.Cell(0, "Crop_type")
		assert.Equal(t, "tea", v)
	})
}

func TestAbsColumn(t *testing.T) {
	table := New("Elevation")
	require.NoError(t, table.AppendRow([]any{-450.5}))
	require.NoError(t, table.AppendRow([]any{120.0}))
	require.NoError(t, table.AppendRow([]any{0.0}))
	require.NoError(t, table.AppendRow([]any{nil}))

	require.NoError(t, table.AbsColumn("Elevation"))
	require.NoError(t, table.AbsColumn("Elevation")) // idempotent

	want := []any{450.5, 120.0, 0.0, nil}
	for i, expected := range want {
		v, err := table.Cell(i, "Elevation")
		require.NoError(t, err)
		assert.Equal(t, expected, v, "row %d", i)
	}
}

func TestOuterJoin(t *testing.T) {
	left := New("Field_ID", "Crop_type")
	require.NoError(t, left.AppendRow([]any{1.0, "wheat"}))
	require.NoError(t, left.AppendRow([]any{2.0, "tea"}))

	right := New("Field_ID", "Weather_station")
	require.NoError(t, right.AppendRow([]any{1.0, 0.0}))
	require.NoError(t, right.AppendRow([]any{3.0, 4.0}))

	joined, err := left.OuterJoin(right, "Field_ID")
	require.NoError(t, err)

	assert.Equal(t, []string{"Field_ID", "Crop_type", "Weather_station"}, joined.Columns())
	require.Equal(t, 3, joined.NumRows())

	// Matched row carries both sides.
	station, _ := joined.Cell(0, "Weather_station")
	assert.Equal(t, 0.0, station)

	// Survey-only field survives with a null station.
	station, _ = joined.Cell(1, "Weather_station")
	assert.Nil(t, station)

	// Mapping-only row survives with null survey fields.
	id, _ := joined.Cell(2, "Field_ID")
	assert.Equal(t, 3.0, id)
	crop, _ := joined.Cell(2, "Crop_type")
	assert.Nil(t, crop)
	station, _ = joined.Cell(2, "Weather_station")
	assert.Equal(t, 4.0, station)
}

func TestGroupMean(t *testing.T) {
	table := New("Weather_station_ID", "Measurement", "Value")
	require.NoError(t, table.AppendRow([]any{"S1", "Temperature", 10.0}))
	require.NoError(t, table.AppendRow([]any{"S1", "Temperature", 20.0}))
	require.NoError(t, table.AppendRow([]any{"S1", "Temperature", 30.0}))
	require.NoError(t, table.AppendRow([]any{"S2", "Rainfall", 50.0}))
	require.NoError(t, table.AppendRow([]any{"S2", nil, nil})) // parse miss, excluded

	means, err := table.GroupMean("Weather_station_ID", "Measurement", "Value")
	require.NoError(t, err)

	assert.Equal(t, []string{"Weather_station_ID", "Rainfall", "Temperature"}, means.Columns())
	require.Equal(t, 2, means.NumRows())

	v, _ := means.Cell(0, "Temperature")
	assert.Equal(t, 20.0, v)
	v, _ = means.Cell(0, "Rainfall")
	assert.Nil(t, v, "group with no rows must not appear")
	v, _ = means.Cell(1, "Rainfall")
	assert.Equal(t, 50.0, v)
}

func TestFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{"float64", 12.5, 12.5, true},
		{"int64", int64(7), 7, true},
		{"numeric string", "3.25", 3.25, true},
		{"text string", "wheat", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Float(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
