package catalog_test

import (
	"math"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/exotriage/exotriage/pkg/catalog"
)

func records() []map[string]string {
	return []map[string]string{
		{"kepoi_name": "K00001.01", "kepid": "10797460", "koi_disposition": "CANDIDATE", "koi_period": "12.3", "koi_model_snr": "8"},
		{"kepoi_name": "K00002.01", "kepid": "10811496", "koi_disposition": "CONFIRMED", "koi_period": "9.488", "koi_model_snr": "35.8", "koi_prad": "2.26"},
		{"kepoi_name": "K00003.01", "kepid": "10848459", "koi_disposition": "CANDIDATE", "koi_model_snr": "5.8"},
		{"kepoi_name": "K00004.01", "kepid": "10854555", "koi_disposition": "NOT DISPOSITIONED", "koi_period": "2.5"},
		{"kepoi_name": "K00005.01", "kepid": "10872983", "koi_disposition": "FALSE POSITIVE", "koi_period": "1.7", "koi_model_snr": "505.6"},
		{"kepoi_name": "K00006.01", "kepid": "6521045", "koi_disposition": "CANDIDATE", "koi_period": "40.1", "koi_model_snr": "oops"},
	}
}

func names(entries []catalog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestFromRecords(t *testing.T) {
	entries := catalog.FromRecords(records())
	require.Len(t, entries, 5, "records without a known disposition are dropped")

	confirmed := entries[1]
	require.NotNil(t, confirmed.PRad)
	assert.Equal(t, 2.26, *confirmed.PRad)
	assert.Nil(t, entries[2].Period)
	assert.Nil(t, entries[4].SNR, "unparseable numbers are missing")
}

func TestApplyDefaults(t *testing.T) {
	res := catalog.Apply(catalog.FromRecords(records()), catalog.ParseQuery(url.Values{}))

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 25, res.PerPage)
	want := []string{"K00005.01", "K00002.01", "K00001.01", "K00006.01", "K00003.01"}
	if diff := cmp.Diff(want, names(res.Data)); diff != "" {
		t.Errorf("default order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[string]int{"CANDIDATE": 3, "CONFIRMED": 1, "FALSE POSITIVE": 1}, res.DispositionCounts)
}

func TestApplyFilters(t *testing.T) {
	entries := catalog.FromRecords(records())

	tests := []struct {
		name   string
		params url.Values
		want   []string
		counts map[string]int
	}{
		{
			name:   "disposition",
			params: url.Values{"disposition": {"CANDIDATE"}},
			want:   []string{"K00001.01", "K00006.01", "K00003.01"},
			counts: map[string]int{"CANDIDATE": 3},
		},
		{
			name:   "search matches name case-insensitively",
			params: url.Values{"search": {"k00002"}},
			want:   []string{"K00002.01"},
			counts: map[string]int{"CONFIRMED": 1},
		},
		{
			name:   "search matches kepid",
			params: url.Values{"search": {"6521"}},
			want:   []string{"K00006.01"},
			counts: map[string]int{"CANDIDATE": 1},
		},
		{
			name:   "min snr excludes missing values",
			params: url.Values{"min_snr": {"8"}},
			want:   []string{"K00005.01", "K00002.01", "K00001.01"},
			counts: map[string]int{"CANDIDATE": 1, "CONFIRMED": 1, "FALSE POSITIVE": 1},
		},
		{
			name:   "max period",
			params: url.Values{"max_period": {"10"}},
			want:   []string{"K00005.01", "K00002.01"},
			counts: map[string]int{"CONFIRMED": 1, "FALSE POSITIVE": 1},
		},
		{
			name:   "invalid bounds are ignored",
			params: url.Values{"min_snr": {"high"}, "max_period": {"NaN"}},
			want:   []string{"K00005.01", "K00002.01", "K00001.01", "K00006.01", "K00003.01"},
			counts: map[string]int{"CANDIDATE": 3, "CONFIRMED": 1, "FALSE POSITIVE": 1},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := catalog.Apply(entries, catalog.ParseQuery(tc.params))
			if diff := cmp.Diff(tc.want, names(res.Data)); diff != "" {
				t.Errorf("entries mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tc.counts, res.DispositionCounts)
			assert.Equal(t, len(tc.want), res.Total)
		})
	}
}

func TestSortMissingLast(t *testing.T) {
	entries := catalog.FromRecords(records())

	catalog.Sort(entries, "koi_period", true)
	assert.Equal(t, []string{"K00006.01", "K00001.01", "K00002.01", "K00005.01", "K00003.01"}, names(entries))

	catalog.Sort(entries, "koi_prad", false)
	assert.Equal(t, "K00002.01", entries[0].Name, "the only radius sorts first")

	catalog.Sort(entries, "kepoi_name", true)
	assert.Equal(t, "K00006.01", entries[0].Name)

	before := names(entries)
	catalog.Sort(entries, "bogus", false)
	assert.Equal(t, before, names(entries))
}

func TestApplyPaging(t *testing.T) {
	entries := catalog.FromRecords(records())

	res := catalog.Apply(entries, catalog.ParseQuery(url.Values{"per_page": {"2"}, "page": {"3"}}))
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, []string{"K00003.01"}, names(res.Data))

	for _, page := range []int{4, math.MaxInt} {
		q := catalog.DefaultQuery()
		q.Page, q.PerPage = page, 2
		res := catalog.Apply(entries, q)
		assert.NotNil(t, res.Data)
		assert.Empty(t, res.Data, "page %d", page)
		assert.Equal(t, 5, res.Total)
	}

	q := catalog.ParseQuery(url.Values{"per_page": {"100000"}, "page": {"-1"}, "sort": {"koi_bogus"}, "dir": {"up"}})
	assert.Equal(t, catalog.MaxPerPage, q.PerPage)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, catalog.DefaultSort, q.Sort)
	assert.False(t, q.Descending)
}
