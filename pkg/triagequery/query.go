// Package triagequery provides the filter, sort, paginate and summary
// operations over an enriched triage batch. Used by both the CLI and the
// HTTP API.
package triagequery

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/exotriage/exotriage/pkg/triage"
)

// Sort keys.
const (
	SortPriorityScore = "priority_score"
	SortConfidence    = "conf_prob"
	SortRadius        = "radius"
	SortNumRoles      = "num_roles"
	SortPeriod        = "period"
)

// Defaults applied by ParseQuery and Normalize.
const (
	DefaultPage    = 1
	DefaultPerPage = 20
	MaxPerPage     = 200
)

// Query describes one filtered, sorted page request. Zero-valued filter
// fields are ignored.
type Query struct {
	Role          string          `json:"role,omitempty"`
	Priority      triage.Priority `json:"priority,omitempty"`
	HabitableOnly bool            `json:"hz_only,omitempty"`
	MinScore      int             `json:"min_score,omitempty"`
	Sort          string          `json:"sort"`
	Descending    bool            `json:"descending"`
	Page          int             `json:"page"`
	PerPage       int             `json:"per_page"`
}

// DefaultQuery returns the query applied when no parameters are given.
func DefaultQuery() Query {
	return Query{
		Sort:       SortPriorityScore,
		Descending: true,
		Page:       DefaultPage,
		PerPage:    DefaultPerPage,
	}
}

// Normalize fills unset or invalid fields with defaults.
func (q Query) Normalize() Query {
	if q.Page <= 0 {
		q.Page = DefaultPage
	}
	if q.PerPage <= 0 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	if q.MinScore < 0 {
		q.MinScore = 0
	}
	if !validSort(q.Sort) {
		q.Sort = SortPriorityScore
	}
	return q
}

func validSort(key string) bool {
	switch key {
	case SortPriorityScore, SortConfidence, SortRadius, SortNumRoles, SortPeriod:
		return true
	}
	return false
}

// ParseQuery reads a Query from URL parameters (page, per_page, role,
// priority, hz_only, sort, dir, min_score). It never fails: values that do
// not parse fall back to defaults.
func ParseQuery(v url.Values) Query {
	return ParseQueryWithDefaults(v, DefaultQuery())
}

// ParseQueryWithDefaults is ParseQuery with caller-supplied defaults.
func ParseQueryWithDefaults(v url.Values, def Query) Query {
	q := def.Normalize()

	if s := v.Get("page"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			q.Page = parsed
		}
	}
	if s := v.Get("per_page"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			q.PerPage = min(parsed, MaxPerPage)
		}
	}
	if s := v.Get("min_score"); s != "" {
		if parsed, err := strconv.Atoi(s); err == nil && parsed > 0 {
			q.MinScore = parsed
		}
	}
	if r := v.Get("role"); r != "" {
		q.Role = r
	}
	if p := strings.ToUpper(v.Get("priority")); p != "" {
		q.Priority = triage.Priority(p)
	}
	if s := v.Get("hz_only"); s != "" {
		q.HabitableOnly = s == "true"
	}
	if s := v.Get("sort"); validSort(s) {
		q.Sort = s
	}
	switch v.Get("dir") {
	case "asc":
		q.Descending = false
	case "desc":
		q.Descending = true
	}
	return q
}

// Values encodes q as URL parameters accepted by ParseQuery.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("per_page", strconv.Itoa(q.PerPage))
	v.Set("sort", q.Sort)
	if q.Descending {
		v.Set("dir", "desc")
	} else {
		v.Set("dir", "asc")
	}
	if q.Role != "" {
		v.Set("role", q.Role)
	}
	if q.Priority != "" {
		v.Set("priority", string(q.Priority))
	}
	if q.HabitableOnly {
		v.Set("hz_only", "true")
	}
	if q.MinScore > 0 {
		v.Set("min_score", strconv.Itoa(q.MinScore))
	}
	return v
}

// Filter returns the candidates matching every filter set on q, in input
// order. The input slice is not modified.
func Filter(cands []triage.Candidate, q Query) []triage.Candidate {
	out := make([]triage.Candidate, 0, len(cands))
	for i := range cands {
		c := &cands[i]
		if q.Role != "" && !c.HasRole(q.Role) {
			continue
		}
		if q.Priority != "" && !c.HasPriority(q.Priority) {
			continue
		}
		if q.HabitableOnly && !c.InHabitableZone {
			continue
		}
		if q.MinScore > 0 && c.PriorityScore < q.MinScore {
			continue
		}
		out = append(out, *c)
	}
	return out
}

func sortValue(c *triage.Candidate, key string) float64 {
	switch key {
	case SortConfidence:
		return c.Inference.ConfirmationProbability
	case SortRadius:
		return c.Inference.PredictedRadius
	case SortNumRoles:
		return float64(c.NumRoles)
	case SortPeriod:
		return c.Params.Period
	default:
		return float64(c.PriorityScore)
	}
}

// Sort orders cands in place by key. Equal keys keep their relative order
// in either direction.
func Sort(cands []triage.Candidate, key string, descending bool) {
	sort.SliceStable(cands, func(i, j int) bool {
		a, b := sortValue(&cands[i], key), sortValue(&cands[j], key)
		if descending {
			return a > b
		}
		return a < b
	})
}

// Pages returns ceil(total/perPage).
func Pages(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total-1)/perPage + 1
}

// Paginate returns the 1-indexed page of cands. Out-of-range pages are empty.
func Paginate(cands []triage.Candidate, page, perPage int) []triage.Candidate {
	return Window(cands, page, perPage)
}

// Window returns the 1-indexed page of items, or an empty non-nil slice when
// the page is out of range.
func Window[T any](items []T, page, perPage int) []T {
	// Compared before multiplying so a huge page cannot overflow start.
	if page <= 0 || page > Pages(len(items), perPage) {
		return []T{}
	}
	start := (page - 1) * perPage
	end := min(start+perPage, len(items))
	return items[start:end]
}

// Result is the outcome of applying a Query to a batch.
type Result struct {
	TotalFiltered int                `json:"total_filtered"`
	Page          int                `json:"page"`
	PerPage       int                `json:"per_page"`
	Pages         int                `json:"pages"`
	Data          []triage.Candidate `json:"data"`
	Summary       Summary            `json:"summary"`
}

// Apply filters, sorts, summarizes (post-filter, pre-pagination) and
// paginates cands. The input slice is not modified.
func Apply(cands []triage.Candidate, q Query) Result {
	q = q.Normalize()
	filtered := Filter(cands, q)
	Sort(filtered, q.Sort, q.Descending)

	return Result{
		TotalFiltered: len(filtered),
		Page:          q.Page,
		PerPage:       q.PerPage,
		Pages:         Pages(len(filtered), q.PerPage),
		Data:          Paginate(filtered, q.Page, q.PerPage),
		Summary:       Summarize(filtered),
	}
}
