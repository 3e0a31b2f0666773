package bot

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marktr/adsbot/fbads"
	"github.com/marktr/adsbot/nav"
	"github.com/marktr/adsbot/nav/session"
)

type fakeAds struct {
	accounts []fbads.AdAccount
	pages    map[string]fbads.Page
	details  map[string]fbads.EntityDetail

	listErr   error
	detailErr error
	mutateErr error

	mutations   []string
	detailCalls int
}

func (f *fakeAds) ListAccounts(context.Context) ([]fbads.AdAccount, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.accounts, nil
}

func (f *fakeAds) ListChildren(_ context.Context, parentID string, _ fbads.Level, _ string) (fbads.Page, error) {
	if f.listErr != nil {
		return fbads.Page{}, f.listErr
	}
	return f.pages[parentID], nil
}

func (f *fakeAds) GetDetail(_ context.Context, id string, _ fbads.Level) (fbads.EntityDetail, error) {
	f.detailCalls++
	if f.detailErr != nil {
		return fbads.EntityDetail{}, f.detailErr
	}
	return f.details[id], nil
}

func (f *fakeAds) MutateStatus(_ context.Context, id string, status fbads.Status) error {
	if f.mutateErr != nil {
		return f.mutateErr
	}
	f.mutations = append(f.mutations, id+":"+string(status))
	return nil
}

func newFakeAds() *fakeAds {
	return &fakeAds{
		accounts: []fbads.AdAccount{{ID: "act_1", Name: "Clinic A", Currency: "USD"}},
		pages: map[string]fbads.Page{
			"act_1": {
				Entities: []fbads.Entity{
					{ID: "c1", Name: "Lead Gen", Status: fbads.StatusActive, Level: fbads.LevelCampaign},
				},
				NextCursor: "AAA",
			},
		},
		details: map[string]fbads.EntityDetail{
			"c1": {
				Entity: fbads.Entity{ID: "c1", Name: "Lead Gen", Status: fbads.StatusActive, Level: fbads.LevelCampaign},
			},
		},
	}
}

type harness struct {
	driver  *Driver
	ads     *fakeAds
	screens []Screen
}

func newHarness() *harness {
	h := &harness{ads: newFakeAds()}
	h.driver = NewDriver(session.NewStore(session.Options{}), h.ads)
	return h
}

func (h *harness) apply(t *testing.T, ev nav.Event) {
	t.Helper()
	err := h.driver.Apply(context.Background(), 42,
		func(nav.State) nav.Event { return ev },
		func(scr Screen) error {
			h.screens = append(h.screens, scr)
			return nil
		})
	require.NoError(t, err)
}

func (h *harness) last(t *testing.T) Screen {
	t.Helper()
	require.NotEmpty(t, h.screens)
	return h.screens[len(h.screens)-1]
}

func (h *harness) drillToConfirm(t *testing.T) {
	t.Helper()
	h.apply(t, nav.Event{Kind: nav.EvHome})
	h.apply(t, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})
	h.apply(t, nav.Event{Kind: nav.EvInspectEntity, EntityID: "c1", EntityName: "Lead Gen"})
	h.apply(t, nav.Event{Kind: nav.EvRequestPause})
}

func TestHomeRendersAccountList(t *testing.T) {
	h := newHarness()
	h.apply(t, nav.Event{Kind: nav.EvHome})

	scr := h.last(t)
	assert.Contains(t, scr.Text, "Ad accounts")
	require.NotNil(t, scr.Keyboard)
	require.Len(t, scr.Keyboard.InlineKeyboard, 1)
	assert.Contains(t, scr.Keyboard.InlineKeyboard[0][0].Text, "Clinic A")
}

func TestSelectAccountShowsCampaigns(t *testing.T) {
	h := newHarness()
	h.apply(t, nav.Event{Kind: nav.EvHome})
	h.apply(t, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})

	scr := h.last(t)
	assert.Contains(t, scr.Text, "Campaigns")
	assert.Contains(t, scr.Text, "Clinic A", "breadcrumb names the account")
	assert.Contains(t, scr.Keyboard.InlineKeyboard[0][0].Text, "Lead Gen")
}

func TestConfirmedPauseMutatesAndReturnsToDetail(t *testing.T) {
	h := newHarness()
	h.drillToConfirm(t)

	scr := h.last(t)
	assert.Contains(t, scr.Text, "Pause")
	assert.Contains(t, scr.Text, "Lead Gen")

	h.apply(t, nav.Event{Kind: nav.EvConfirmAction})
	assert.Equal(t, []string{"c1:PAUSED"}, h.ads.mutations)

	scr = h.last(t)
	assert.Contains(t, scr.Text, "Paused", "the detail screen carries the success note")
	assert.Contains(t, scr.Text, "Lead Gen")
}

func TestCancelNeverMutates(t *testing.T) {
	h := newHarness()
	h.drillToConfirm(t)
	h.apply(t, nav.Event{Kind: nav.EvCancelAction})

	assert.Empty(t, h.ads.mutations)
	assert.Contains(t, h.last(t).Text, "Lead Gen")
}

func TestCancelRendersDetailWithoutPlatformCall(t *testing.T) {
	h := newHarness()
	h.drillToConfirm(t)
	fetched := h.ads.detailCalls

	h.apply(t, nav.Event{Kind: nav.EvCancelAction})

	assert.Equal(t, fetched, h.ads.detailCalls, "dismissing the overlay must not touch the platform")
	assert.Contains(t, h.last(t).Text, "Lead Gen", "the detail screen comes back from the session cache")

	// Even with the platform down, cancelling still works.
	h.apply(t, nav.Event{Kind: nav.EvRequestPause})
	h.ads.detailErr = fbads.ErrPlatformUnavailable
	h.apply(t, nav.Event{Kind: nav.EvCancelAction})
	assert.Contains(t, h.last(t).Text, "Lead Gen")
}

func TestThrottledMutationKeepsConfirmation(t *testing.T) {
	h := newHarness()
	h.drillToConfirm(t)
	h.ads.mutateErr = fbads.ErrRateLimited

	h.apply(t, nav.Event{Kind: nav.EvConfirmAction})

	scr := h.last(t)
	assert.Contains(t, scr.Text, "throttling", "the operator is told to retry")
	assert.Contains(t, scr.Text, "Pause", "the confirmation stays on screen")
	assert.Empty(t, h.ads.mutations)

	// A later confirm goes through once the platform recovers.
	h.ads.mutateErr = nil
	h.apply(t, nav.Event{Kind: nav.EvConfirmAction})
	assert.Equal(t, []string{"c1:PAUSED"}, h.ads.mutations)
}

func TestVanishedEntityResetsToAccounts(t *testing.T) {
	h := newHarness()
	h.apply(t, nav.Event{Kind: nav.EvHome})
	h.apply(t, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})
	h.ads.detailErr = fbads.ErrNotFound
	h.apply(t, nav.Event{Kind: nav.EvInspectEntity, EntityID: "gone", EntityName: "Gone"})

	scr := h.last(t)
	assert.Contains(t, scr.Text, "no longer exists")
	assert.Contains(t, scr.Text, "Ad accounts")
}

func TestEdgePaginationRendersNothing(t *testing.T) {
	h := newHarness()
	h.apply(t, nav.Event{Kind: nav.EvHome})
	rendered := len(h.screens)

	h.apply(t, nav.Event{Kind: nav.EvPrevPage})
	assert.Equal(t, rendered, len(h.screens), "an edge tap leaves the message alone")
}

func TestStaleButtonResolvesAgainstCurrentLevel(t *testing.T) {
	h := newHarness()
	h.apply(t, nav.Event{Kind: nav.EvHome})

	// A leftover confirm button from an expired session maps to an
	// advisory rather than a mutation.
	h.apply(t, nav.Event{Kind: nav.EvConfirmAction})
	assert.Empty(t, h.ads.mutations)
	assert.Contains(t, h.last(t).Text, "does not apply")
}
