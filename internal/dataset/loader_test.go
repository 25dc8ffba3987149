package dataset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ad-insights-go/internal/types"
)

func TestLoadJSON_Shapes(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"array", `[{"adArchiveID":"1"},{"adArchiveID":"2"}]`, 2},
		{"items object", `{"items":[{"adArchiveID":"1"}]}`, 1},
		{"json lines", "{\"adArchiveID\":\"1\"}\n{\"adArchiveID\":\"2\"}\n{\"adArchiveID\":\"3\"}\n", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := LoadJSON(strings.NewReader(tt.in))
			require.NoError(t, err)
			assert.Len(t, items, tt.want)
		})
	}
}

func TestLoadJSON_KeepsLongIDs(t *testing.T) {
	items, err := LoadJSON(strings.NewReader(`[{"adArchiveID": 1234567890123456789}]`))
	require.NoError(t, err)

	assert.Equal(t, json.Number("1234567890123456789"), items[0]["adArchiveID"])
	assert.Equal(t, "1234567890123456789", FromItem(items[0], types.QualityMedium).ID)
}

func TestLoadJSON_Errors(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`[]`))
	assert.ErrorIs(t, err, ErrNoItems)

	_, err = LoadJSON(strings.NewReader(`[{"a":`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoItems)
}

func TestLoadCSV(t *testing.T) {
	in := "\ufeffad_archive_id,snapshot/body/text,snapshot/videos/0/video_sd_url\n" +
		"7,Watch this,https://cdn/v.mp4\n" +
		",,\n"

	items, err := LoadCSV(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, items, 1)

	rec := FromItem(items[0], types.QualityMedium)
	assert.Equal(t, "7", rec.ID)
	assert.Equal(t, types.AdVideo, rec.Type)
	assert.Equal(t, "Watch this", rec.Text)
}

func TestLoadItems_DispatchesByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "items.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`[{"adArchiveID":"j"}]`), 0o644))
	csvPath := filepath.Join(dir, "items.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("ad_archive_id\nc\n"), 0o644))

	items, err := LoadItems(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "j", items[0]["adArchiveID"])

	items, err = LoadItems(csvPath)
	require.NoError(t, err)
	assert.Equal(t, "c", items[0]["ad_archive_id"])

	_, err = LoadItems(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
