package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"ad-insights-go/internal/logger"
)

var ErrNoItems = errors.New("dataset has no items")

// LoadItems reads scraped items from path, choosing the decoder by
// extension: .xlsx, .csv, anything else as JSON.
func LoadItems(path string) ([]Item, error) {
	log := logger.New().WithField("component", "dataset.loader").WithField("path", path)

	var (
		items []Item
		err   error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		items, err = LoadWorkbook(path)
	case ".csv":
		items, err = openAnd(path, LoadCSV)
	default:
		items, err = openAnd(path, LoadJSON)
	}
	if err != nil {
		log.WithError(err).Error("load failed")
		return nil, err
	}
	log.WithField("items", len(items)).Info("dataset loaded")
	return items, nil
}

func openAnd(path string, decode func(io.Reader) ([]Item, error)) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return decode(f)
}

// LoadJSON accepts a JSON array of items, an object with an "items" array,
// or a stream of item objects (JSON lines). Numbers are kept as
// json.Number so long archive ids survive intact.
func LoadJSON(r io.Reader) ([]Item, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var items []Item
	for {
		var v any
		err := dec.Decode(&v)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
		switch x := v.(type) {
		case []any:
			items = appendObjects(items, x)
		case map[string]any:
			if nested, ok := x["items"].([]any); ok {
				items = appendObjects(items, nested)
			} else {
				items = append(items, Item(x))
			}
		}
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}

func appendObjects(items []Item, values []any) []Item {
	for _, v := range values {
		if m, ok := v.(map[string]any); ok {
			items = append(items, Item(m))
		}
	}
	return items
}

// LoadCSV reads a flat export: the header row holds the keys.
func LoadCSV(r io.Reader) ([]Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rowsToItems(rows)
}

// LoadWorkbook reads the first sheet of an xlsx export.
func LoadWorkbook(path string) ([]Item, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return rowsToItems(rows)
}

func rowsToItems(rows [][]string) ([]Item, error) {
	if len(rows) <= 1 {
		return nil, ErrNoItems
	}
	header := rows[0]
	var items []Item
	for _, r := range rows[1:] {
		it := Item{}
		for i, h := range header {
			key := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
			if key == "" || i >= len(r) {
				continue
			}
			if v := strings.TrimSpace(r[i]); v != "" {
				it[key] = v
			}
		}
		if len(it) > 0 {
			items = append(items, it)
		}
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	return items, nil
}
