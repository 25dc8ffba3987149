package aggregator

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-insights-go/internal/types"
)

func TestCell(t *testing.T) {
	var nilMap map[string]any
	var nilPtr *string
	likes := 1200
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "N/A"},
		{"empty string", "", "N/A"},
		{"blank string", "   ", "N/A"},
		{"string", "Acme", "Acme"},
		{"bool", false, "false"},
		{"json float", float64(12000), "12000"},
		{"fraction", 4.5, "4.5"},
		{"int", 7, "7"},
		{"json number", json.Number("42"), "42"},
		{"pointer", &likes, "1200"},
		{"nil pointer", nilPtr, "N/A"},
		{"nil map", nilMap, "N/A"},
		{"empty slice", []any{}, "N/A"},
		{"slice", []any{"FACEBOOK", "INSTAGRAM"}, `["FACEBOOK","INSTAGRAM"]`},
		{"string slice", []string{"AUDIENCE_NETWORK"}, `["AUDIENCE_NETWORK"]`},
		{"map", map[string]any{"b": 1, "a": "x"}, `{"a":"x","b":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cell(tt.in))
		})
	}
}

func TestAssemble(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	records := []types.AdRecord{
		{
			ID:   "111",
			Type: types.AdVideo,
			Text: "Summer sale",
			Meta: types.AdMeta{
				PageName:  "Acme",
				PageURL:   "https://facebook.com/acme",
				PageLikes: float64(5000),
				IsActive:  true,
				Platforms: []any{"FACEBOOK"},
			},
		},
		{ID: "222", Type: types.AdText},
	}
	results := map[string]types.AnalysisResult{
		"111": {Summary: "Seasonal discount", VideoDescription: "Beach scene"},
	}

	rows := Assemble(records, results, now)

	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Len(t, row, len(Headers))
		for i, cell := range row {
			assert.NotEmpty(t, cell, "column %s", Headers[i])
		}
	}
	assert.Equal(t, types.Row{
		"111", "Video", "2025-03-04 05:06:07", "Acme", "https://facebook.com/acme", "5000",
		"N/A", "N/A", "true", `["FACEBOOK"]`, "N/A", "N/A", "N/A", "N/A",
		"Summer sale", "Seasonal discount", "N/A", "Beach scene",
	}, rows[0])

	// no result recorded
	assert.Equal(t, "222", rows[1][0])
	assert.Equal(t, []string{"Error", "Error", "Error"}, []string(rows[1][15:]))
}

func TestAssemble_PreservesInputOrder(t *testing.T) {
	records := []types.AdRecord{{ID: "c"}, {ID: "a"}, {ID: "b"}}
	rows := Assemble(records, map[string]types.AnalysisResult{}, time.Now())

	var ids []string
	for _, r := range rows {
		ids = append(ids, r[0])
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestStats(t *testing.T) {
	records := []types.AdRecord{
		{ID: "1", Type: types.AdText},
		{ID: "2", Type: types.AdImage},
		{ID: "3", Type: types.AdImage},
		{ID: "4", Type: types.AdVideo},
		{ID: "5", Type: types.AdVideo},
	}
	results := map[string]types.AnalysisResult{
		"1": {Summary: "ok"},
		"2": {Summary: types.ErrorMarker, ImageDescription: types.ErrorMarker},
		"3": {Summary: "fine"},
		"4": types.Skipped(),
	}

	got := Stats(records, results)

	assert.Equal(t, 5, got.Total)
	assert.Equal(t, 2, got.OK)
	assert.Equal(t, 2, got.Errors)
	assert.Equal(t, 1, got.Skipped)
	assert.Equal(t, TypeStats{Total: 2, OK: 1, Errors: 1}, got.ByType[types.AdImage])
	assert.Equal(t, TypeStats{Total: 2, Errors: 1, Skipped: 1}, got.ByType[types.AdVideo])
}
