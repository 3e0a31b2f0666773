package workspace

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Glow Aesthetics":        "glow-aesthetics",
		"  Dr. Ana's Clinic  ":   "dr-ana-s-clinic",
		"SPA & Wellness (North)": "spa-wellness-north",
		"já-lowercase":           "j-lowercase",
		"---":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestPlanDiff(t *testing.T) {
	current := []ClientRecord{
		{Slug: "glow", Name: "Glow", Stage: "Active", PageID: "p1"},
		{Slug: "aura", Name: "Aura", Stage: "Active", PageID: "p2"},
		{Slug: "derma", Name: "Derma", Stage: "Active", PageID: "p3"},
	}
	fetched := []ClientRecord{
		{Slug: "glow", Name: "Glow", Stage: "Active", PageID: "p1"},
		{Slug: "aura", Name: "Aura Med Spa", Stage: "Active", PageID: "p2"},
		{Slug: "nova", Name: "Nova", Stage: "Active", PageID: "p4"},
	}

	plan := Plan(current, fetched)
	assert.Equal(t, []string{"nova"}, plan.Added)
	assert.Equal(t, []string{"aura"}, plan.Updated)
	assert.Equal(t, []string{"derma"}, plan.Removed)
	assert.Equal(t, 3, plan.Total)
	assert.True(t, plan.Dirty())
	assert.Equal(t, "3 clients (+1 ~1 -1)", plan.String())
}

func TestPlanNoChanges(t *testing.T) {
	recs := []ClientRecord{{Slug: "glow", Name: "Glow", Stage: "Active", PageID: "p1"}}
	plan := Plan(recs, recs)
	assert.False(t, plan.Dirty())
	assert.Equal(t, 1, plan.Total)
}

type fakeSource struct {
	records []ClientRecord
	err     error
}

func (f *fakeSource) FetchClients(context.Context) ([]ClientRecord, error) {
	return f.records, f.err
}

type fakeCache struct {
	records  []ClientRecord
	replaced [][]ClientRecord
}

func (f *fakeCache) ListAll(context.Context) ([]ClientRecord, error) {
	return f.records, nil
}

func (f *fakeCache) ReplaceAll(_ context.Context, records []ClientRecord) error {
	f.replaced = append(f.replaced, records)
	f.records = records
	return nil
}

func TestSyncAppliesOnlyWhenDirty(t *testing.T) {
	cache := &fakeCache{records: []ClientRecord{{Slug: "glow", Name: "Glow", Stage: "Active", PageID: "p1"}}}
	source := &fakeSource{records: []ClientRecord{
		{Slug: "glow", Name: "Glow", Stage: "Active", PageID: "p1"},
		{Slug: "nova", Name: "Nova", Stage: "Active", PageID: "p4"},
	}}
	syncer := NewSyncer(source, cache)

	plan, err := syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"nova"}, plan.Added)
	require.Len(t, cache.replaced, 1)
	assert.False(t, cache.replaced[0][0].UpdatedAt.IsZero(), "applied records are stamped")

	plan, err = syncer.Sync(context.Background())
	require.NoError(t, err)
	assert.False(t, plan.Dirty())
	assert.Len(t, cache.replaced, 1, "a clean sync must not rewrite the cache")
}

func TestSyncPropagatesFetchFailure(t *testing.T) {
	cache := &fakeCache{}
	syncer := NewSyncer(&fakeSource{err: fmt.Errorf("boom")}, cache)
	_, err := syncer.Sync(context.Background())
	require.Error(t, err)
	assert.Empty(t, cache.replaced)
}

func TestHTTPSourcePagesAndFilters(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/v1/databases/db-1/query", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		if calls == 1 {
			fmt.Fprint(w, `{
				"results": [
					{"id":"p1","properties":{"Name":{"title":[{"plain_text":"Glow Aesthetics"}]},"Stage":{"select":{"name":"Active"}}}},
					{"id":"p2","properties":{"Name":{"title":[{"plain_text":"Churned Spa"}]},"Stage":{"select":{"name":"Churned"}}}}
				],
				"has_more": true,
				"next_cursor": "cur-2"
			}`)
			return
		}
		fmt.Fprint(w, `{
			"results": [
				{"id":"p3","properties":{"Name":{"title":[{"plain_text":"Nova Clinic"}]},"Stage":{"select":{"name":"Onboarding"}}}}
			],
			"has_more": false
		}`)
	}))
	defer srv.Close()

	source := NewHTTPSource(SourceOptions{
		BaseURL:      srv.URL,
		Token:        "secret",
		DatabaseID:   "db-1",
		ActiveStages: []string{"Active", "Onboarding"},
	})

	records, err := source.FetchClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, records, 2, "inactive stages are dropped")
	assert.Equal(t, "glow-aesthetics", records[0].Slug)
	assert.Equal(t, "p1", records[0].PageID)
	assert.Equal(t, "nova-clinic", records[1].Slug)
}

func TestHTTPSourceSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"invalid token"}`)
	}))
	defer srv.Close()

	source := NewHTTPSource(SourceOptions{BaseURL: srv.URL, Token: "bad", DatabaseID: "db-1"})
	_, err := source.FetchClients(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}
