// Package catalog browses raw KOI records: filtering by disposition, name,
// signal strength and period, sorting by any listed column, and paging.
package catalog

import (
	"cmp"
	"math"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/exotriage/exotriage/pkg/triagequery"
)

// Dispositions are the archive dispositions a record must carry to be
// listed.
var Dispositions = []string{"CONFIRMED", "FALSE POSITIVE", "CANDIDATE"}

const (
	DefaultSort    = "koi_period"
	DefaultPerPage = 25
	MaxPerPage     = 500
)

// Entry is one listed record. Numeric values missing from the dataset are
// null.
type Entry struct {
	Name        string   `json:"kepoi_name"`
	KepID       string   `json:"kepid"`
	Disposition string   `json:"koi_disposition"`
	Period      *float64 `json:"koi_period"`
	Impact      *float64 `json:"koi_impact"`
	Duration    *float64 `json:"koi_duration"`
	Depth       *float64 `json:"koi_depth"`
	SNR         *float64 `json:"koi_model_snr"`
	Steff       *float64 `json:"koi_steff"`
	Slogg       *float64 `json:"koi_slogg"`
	Srad        *float64 `json:"koi_srad"`
	Smass       *float64 `json:"koi_smass"`
	Smet        *float64 `json:"koi_smet"`
	PRad        *float64 `json:"koi_prad"`
}

var textColumns = map[string]func(*Entry) string{
	"kepoi_name":      func(e *Entry) string { return e.Name },
	"kepid":           func(e *Entry) string { return e.KepID },
	"koi_disposition": func(e *Entry) string { return e.Disposition },
}

var numericColumns = map[string]func(*Entry) **float64{
	"koi_period":    func(e *Entry) **float64 { return &e.Period },
	"koi_impact":    func(e *Entry) **float64 { return &e.Impact },
	"koi_duration":  func(e *Entry) **float64 { return &e.Duration },
	"koi_depth":     func(e *Entry) **float64 { return &e.Depth },
	"koi_model_snr": func(e *Entry) **float64 { return &e.SNR },
	"koi_steff":     func(e *Entry) **float64 { return &e.Steff },
	"koi_slogg":     func(e *Entry) **float64 { return &e.Slogg },
	"koi_srad":      func(e *Entry) **float64 { return &e.Srad },
	"koi_smass":     func(e *Entry) **float64 { return &e.Smass },
	"koi_smet":      func(e *Entry) **float64 { return &e.Smet },
	"koi_prad":      func(e *Entry) **float64 { return &e.PRad },
}

// FromRecords converts raw records to entries, dropping records without one
// of Dispositions. Unparseable numbers are treated as missing.
func FromRecords[R ~map[string]string](recs []R) []Entry {
	out := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		disp := rec["koi_disposition"]
		if !slices.Contains(Dispositions, disp) {
			continue
		}
		e := Entry{Name: rec["kepoi_name"], KepID: rec["kepid"], Disposition: disp}
		for col, field := range numericColumns {
			raw, ok := rec[col]
			if !ok {
				continue
			}
			if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsNaN(v) {
				*field(&e) = &v
			}
		}
		out = append(out, e)
	}
	return out
}

// Query selects and orders entries.
type Query struct {
	Page        int      `json:"page"`
	PerPage     int      `json:"per_page"`
	Sort        string   `json:"sort"`
	Descending  bool     `json:"descending"`
	Disposition string   `json:"disposition,omitempty"`
	Search      string   `json:"search,omitempty"`
	MinSNR      *float64 `json:"min_snr,omitempty"`
	MaxPeriod   *float64 `json:"max_period,omitempty"`
}

// DefaultQuery lists the first page in ascending period order.
func DefaultQuery() Query {
	return Query{Page: 1, PerPage: DefaultPerPage, Sort: DefaultSort}
}

// ValidSort reports whether key names a listed column.
func ValidSort(key string) bool {
	_, text := textColumns[key]
	_, num := numericColumns[key]
	return text || num
}

// ParseQuery reads a Query from URL parameters (page, per_page, sort, dir,
// disposition, search, min_snr, max_period). Values that do not parse are
// ignored.
func ParseQuery(v url.Values) Query {
	q := DefaultQuery()
	if s := v.Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			q.Page = n
		}
	}
	if s := v.Get("per_page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			q.PerPage = min(n, MaxPerPage)
		}
	}
	if s := v.Get("sort"); ValidSort(s) {
		q.Sort = s
	}
	q.Descending = v.Get("dir") == "desc"
	q.Disposition = v.Get("disposition")
	q.Search = strings.TrimSpace(v.Get("search"))
	q.MinSNR = parseFloat(v.Get("min_snr"))
	q.MaxPeriod = parseFloat(v.Get("max_period"))
	return q
}

func parseFloat(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

// Filter returns the entries matching q, in their original order. Entries
// missing the value a numeric bound applies to are excluded.
func Filter(entries []Entry, q Query) []Entry {
	search := strings.ToLower(q.Search)
	out := make([]Entry, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		if q.Disposition != "" && e.Disposition != q.Disposition {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(e.Name), search) &&
			!strings.Contains(strings.ToLower(e.KepID), search) {
			continue
		}
		if q.MinSNR != nil && (e.SNR == nil || *e.SNR < *q.MinSNR) {
			continue
		}
		if q.MaxPeriod != nil && (e.Period == nil || *e.Period > *q.MaxPeriod) {
			continue
		}
		out = append(out, *e)
	}
	return out
}

// Sort orders entries in place by column key. Missing values sort last in
// either direction and ties keep their order. Unknown keys leave entries
// unchanged.
func Sort(entries []Entry, key string, descending bool) {
	if get, ok := numericColumns[key]; ok {
		slices.SortStableFunc(entries, func(a, b Entry) int {
			va, vb := *get(&a), *get(&b)
			switch {
			case va == nil && vb == nil:
				return 0
			case va == nil:
				return 1
			case vb == nil:
				return -1
			}
			if descending {
				return cmp.Compare(*vb, *va)
			}
			return cmp.Compare(*va, *vb)
		})
		return
	}
	if get, ok := textColumns[key]; ok {
		slices.SortStableFunc(entries, func(a, b Entry) int {
			va, vb := get(&a), get(&b)
			switch {
			case va == "" && vb == "":
				return 0
			case va == "":
				return 1
			case vb == "":
				return -1
			}
			if descending {
				return strings.Compare(vb, va)
			}
			return strings.Compare(va, vb)
		})
	}
}

// Result is one page of a browse.
type Result struct {
	Total             int            `json:"total"`
	Page              int            `json:"page"`
	PerPage           int            `json:"per_page"`
	Pages             int            `json:"pages"`
	Data              []Entry        `json:"data"`
	DispositionCounts map[string]int `json:"disposition_counts"`
}

// Apply filters, sorts and pages entries. Disposition counts cover the
// whole filtered set. entries is not modified.
func Apply(entries []Entry, q Query) Result {
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	filtered := Filter(entries, q)
	Sort(filtered, q.Sort, q.Descending)

	counts := make(map[string]int)
	for i := range filtered {
		counts[filtered[i].Disposition]++
	}
	return Result{
		Total:             len(filtered),
		Page:              q.Page,
		PerPage:           q.PerPage,
		Pages:             triagequery.Pages(len(filtered), q.PerPage),
		Data:              triagequery.Window(filtered, q.Page, q.PerPage),
		DispositionCounts: counts,
	}
}
