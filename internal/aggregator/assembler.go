package aggregator

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"ad-insights-go/internal/types"
)

// DateLayout formats the Date Added column.
const DateLayout = "2006-01-02 15:04:05"

// Headers is the fixed column order of every output row.
var Headers = []string{
	"Ad Archive ID",
	"Type",
	"Date Added",
	"Page Name",
	"Page URL",
	"Page Likes",
	"Start Date",
	"End Date",
	"Is Active",
	"Platforms",
	"CTA Text",
	"CTA Type",
	"Link URL",
	"Display Format",
	"Ad Text",
	"Summary",
	"Image Description",
	"Video Description",
}

// Assemble builds one row per record, in input order. A record with no
// result gets the failure markers.
func Assemble(records []types.AdRecord, results map[string]types.AnalysisResult, now time.Time) []types.Row {
	added := now.Format(DateLayout)
	rows := make([]types.Row, 0, len(records))
	for _, rec := range records {
		res, ok := results[rec.ID]
		if !ok {
			res = types.Failed()
		}
		res = res.Normalize()
		m := rec.Meta
		rows = append(rows, types.Row{
			Cell(rec.ID),
			Cell(string(rec.Type)),
			added,
			Cell(m.PageName),
			Cell(m.PageURL),
			Cell(m.PageLikes),
			Cell(m.StartDate),
			Cell(m.EndDate),
			Cell(m.IsActive),
			Cell(m.Platforms),
			Cell(m.CTAText),
			Cell(m.CTAType),
			Cell(m.LinkURL),
			Cell(m.DisplayFormat),
			Cell(rec.Text),
			res.Summary,
			res.ImageDescription,
			res.VideoDescription,
		})
	}
	return rows
}

// Cell flattens a scraped value into a single spreadsheet cell. It never
// returns an empty string: absent or empty values become N/A, collections
// become compact JSON.
func Cell(v any) string {
	switch x := v.(type) {
	case nil:
		return types.NotAvailable
	case string:
		if strings.TrimSpace(x) == "" {
			return types.NotAvailable
		}
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case json.Number:
		return Cell(x.String())
	case fmt.Stringer:
		return Cell(x.String())
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return types.NotAvailable
		}
		return Cell(rv.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return types.NotAvailable
		}
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
	return Cell(fmt.Sprint(v))
}
