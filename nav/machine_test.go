package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marktr/adsbot/fbads"
)

func drillToAdList(t *testing.T) State {
	t.Helper()
	s := NewState()
	var eff Effect
	s, eff = Transition(s, Event{Kind: EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})
	require.Equal(t, EffectFetchChildren, eff.Kind)
	s, _ = Transition(s, Event{Kind: EvSelectCampaign, EntityID: "c1", EntityName: "Lead Gen"})
	s, _ = Transition(s, Event{Kind: EvSelectAdSet, EntityID: "as1", EntityName: "Lookalike"})
	require.Equal(t, AdList, s.Level)
	return s
}

func TestDepthInvariantThroughDrillDown(t *testing.T) {
	s := NewState()
	assert.Equal(t, 0, s.Depth())

	s, _ = Transition(s, Event{Kind: EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})
	assert.Equal(t, CampaignList, s.Level)
	assert.Equal(t, 1, len(s.Crumbs))
	assert.Equal(t, int(s.Level), len(s.Crumbs))

	s, _ = Transition(s, Event{Kind: EvSelectCampaign, EntityID: "c1", EntityName: "Lead Gen"})
	assert.Equal(t, int(s.Level), len(s.Crumbs))

	s, _ = Transition(s, Event{Kind: EvSelectAdSet, EntityID: "as1", EntityName: "Lookalike"})
	assert.Equal(t, AdList, s.Level)
	assert.Equal(t, int(s.Level), len(s.Crumbs))
}

func TestSelectFetchesChildrenOfSelection(t *testing.T) {
	s := NewState()
	s, eff := Transition(s, Event{Kind: EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})
	require.Equal(t, EffectFetchChildren, eff.Kind)
	assert.Equal(t, "act_1", eff.ParentID)
	assert.Equal(t, AccountList, eff.ParentLevel)
	assert.Empty(t, eff.Cursor, "a fresh list starts at the first page")
	assert.Equal(t, CampaignList, s.Level)
}

func TestBackPopsOneLevel(t *testing.T) {
	s := drillToAdList(t)

	s, eff := Transition(s, Event{Kind: EvBack})
	assert.Equal(t, AdSetList, s.Level)
	assert.Equal(t, 2, len(s.Crumbs))
	require.Equal(t, EffectFetchChildren, eff.Kind)
	assert.Equal(t, "c1", eff.ParentID)

	s, _ = Transition(s, Event{Kind: EvBack})
	s, _ = Transition(s, Event{Kind: EvBack})
	assert.Equal(t, AccountList, s.Level)
	assert.Empty(t, s.Crumbs)

	before := s
	s, eff = Transition(s, Event{Kind: EvBack})
	assert.Equal(t, before, s, "back at the root changes nothing")
	assert.Equal(t, EffectRenderOnly, eff.Kind)
	assert.NotEmpty(t, eff.Advisory)
}

func TestInspectAndBackReturnsToSameList(t *testing.T) {
	s := drillToAdList(t)
	s.Cursor = "PAGE2"

	s, eff := Transition(s, Event{Kind: EvSelectAd, EntityID: "ad1", EntityName: "Video A"})
	require.Equal(t, EntityDetail, s.Level)
	require.Equal(t, EffectFetchDetail, eff.Kind)
	assert.Equal(t, "ad1", eff.EntityID)

	s, eff = Transition(s, Event{Kind: EvBack})
	assert.Equal(t, AdList, s.Level)
	assert.Nil(t, s.Detail)
	require.Equal(t, EffectFetchChildren, eff.Kind)
	assert.Equal(t, "PAGE2", eff.Cursor, "the list page survives a detail round trip")
}

func TestInspectFromIntermediateList(t *testing.T) {
	s := NewState()
	s, _ = Transition(s, Event{Kind: EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})

	s, eff := Transition(s, Event{Kind: EvInspectEntity, EntityID: "c1", EntityName: "Lead Gen"})
	require.Equal(t, EntityDetail, s.Level)
	assert.Equal(t, EffectFetchDetail, eff.Kind)
	assert.Equal(t, CampaignList, s.Detail.ListLevel)

	s, _ = Transition(s, Event{Kind: EvBack})
	assert.Equal(t, CampaignList, s.Level)
	assert.Equal(t, 1, len(s.Crumbs))
}

func TestPauseConfirmFlow(t *testing.T) {
	s := drillToAdList(t)
	s, _ = Transition(s, Event{Kind: EvSelectAd, EntityID: "ad1", EntityName: "Video A"})

	s, eff := Transition(s, Event{Kind: EvRequestPause})
	require.Equal(t, ConfirmAction, s.Level)
	require.NotNil(t, s.Pending)
	assert.Equal(t, ActionPause, s.Pending.Kind)
	assert.Equal(t, "ad1", s.Pending.EntityID)
	assert.Equal(t, EffectRenderOnly, eff.Kind, "asking for confirmation needs no platform call")

	s, eff = Transition(s, Event{Kind: EvConfirmAction})
	require.Equal(t, EffectMutateStatus, eff.Kind)
	assert.Equal(t, "ad1", eff.EntityID)
	assert.Equal(t, ActionPause, eff.Action)

	s, eff = ResolveSuccess(s)
	assert.Equal(t, EntityDetail, s.Level)
	assert.Nil(t, s.Pending)
	assert.Equal(t, EffectFetchDetail, eff.Kind)
}

func TestCancelDiscardsPendingAction(t *testing.T) {
	s := drillToAdList(t)
	s, _ = Transition(s, Event{Kind: EvSelectAd, EntityID: "ad1", EntityName: "Video A"})
	s, _ = Transition(s, Event{Kind: EvRequestResume})
	require.NotNil(t, s.Pending)

	s, eff := Transition(s, Event{Kind: EvCancelAction})
	assert.Equal(t, EntityDetail, s.Level)
	assert.Nil(t, s.Pending)
	assert.Equal(t, EffectRenderOnly, eff.Kind, "backing out needs no platform call")
}

func TestHomeFromConfirmDiscardsEverything(t *testing.T) {
	s := drillToAdList(t)
	s, _ = Transition(s, Event{Kind: EvSelectAd, EntityID: "ad1", EntityName: "Video A"})
	s, _ = Transition(s, Event{Kind: EvRequestPause})

	s, eff := Transition(s, Event{Kind: EvHome})
	assert.Equal(t, AccountList, s.Level)
	assert.Empty(t, s.Crumbs)
	assert.Nil(t, s.Pending)
	assert.Nil(t, s.Detail)
	require.Equal(t, EffectFetchChildren, eff.Kind)
	assert.Empty(t, eff.ParentID)
}

func TestMutateOnlyFiresFromConfirmWithPending(t *testing.T) {
	s := drillToAdList(t)
	_, eff := Transition(s, Event{Kind: EvConfirmAction})
	assert.Equal(t, EffectRenderOnly, eff.Kind)
	assert.NotEmpty(t, eff.Advisory)

	s, _ = Transition(s, Event{Kind: EvSelectAd, EntityID: "ad1", EntityName: "Video A"})
	_, eff = Transition(s, Event{Kind: EvConfirmAction})
	assert.Equal(t, EffectRenderOnly, eff.Kind, "confirm without a pending action is a no-op")
}

func TestPaginationNoOpsAtEdges(t *testing.T) {
	s := NewState()
	before := s
	s, eff := Transition(s, Event{Kind: EvNextPage})
	assert.Equal(t, before, s)
	assert.Equal(t, EffectRenderOnly, eff.Kind)

	s, eff = Transition(s, Event{Kind: EvPrevPage})
	assert.Equal(t, before, s)
	assert.Equal(t, EffectRenderOnly, eff.Kind)
}

func TestPaginationFollowsCursors(t *testing.T) {
	s := NewState()
	s.NextCursor = "AAA"

	s, eff := Transition(s, Event{Kind: EvNextPage})
	require.Equal(t, EffectFetchChildren, eff.Kind)
	assert.Equal(t, "AAA", eff.Cursor)
	assert.Equal(t, "AAA", s.Cursor)
	assert.Empty(t, s.NextCursor, "stale cursors are cleared until the fetch lands")

	s.PrevCursor = "BBB"
	s, eff = Transition(s, Event{Kind: EvPrevPage})
	require.Equal(t, EffectFetchChildren, eff.Kind)
	assert.Equal(t, "BBB", eff.Cursor)
	assert.Equal(t, "BBB", s.Cursor)
}

func TestStaleEventAtWrongLevelIsAdvisory(t *testing.T) {
	s := NewState()
	before := s
	s, eff := Transition(s, Event{Kind: EvSelectCampaign, EntityID: "c1"})
	assert.Equal(t, before, s)
	assert.Equal(t, EffectRenderOnly, eff.Kind)
	assert.NotEmpty(t, eff.Advisory)

	_, eff = Transition(s, Event{Kind: EvRequestPause})
	assert.Equal(t, EffectRenderOnly, eff.Kind)
}

func TestTransitionsDoNotAliasCrumbs(t *testing.T) {
	s := drillToAdList(t)
	popped, _ := Transition(s, Event{Kind: EvBack})
	popped.Crumbs[0].Name = "mutated"
	assert.Equal(t, "Clinic A", s.Crumbs[0].Name)
}

func confirmState(t *testing.T) State {
	t.Helper()
	s := drillToAdList(t)
	s, _ = Transition(s, Event{Kind: EvSelectAd, EntityID: "ad1", EntityName: "Video A"})
	s, _ = Transition(s, Event{Kind: EvRequestPause})
	require.Equal(t, ConfirmAction, s.Level)
	return s
}

func TestResolveFailureTransientKeepsConfirm(t *testing.T) {
	s := confirmState(t)

	next, advisory := ResolveFailure(s, fbads.ErrRateLimited)
	assert.Equal(t, ConfirmAction, next.Level)
	assert.NotNil(t, next.Pending, "a throttled write stays retryable")
	assert.NotEmpty(t, advisory)

	next, _ = ResolveFailure(s, fbads.ErrPlatformUnavailable)
	assert.Equal(t, ConfirmAction, next.Level)
	assert.NotNil(t, next.Pending)
}

func TestResolveFailureForbiddenDropsToDetail(t *testing.T) {
	s := confirmState(t)

	next, advisory := ResolveFailure(s, fbads.ErrForbidden)
	assert.Equal(t, EntityDetail, next.Level)
	assert.Nil(t, next.Pending)
	assert.NotEmpty(t, advisory)

	next, _ = ResolveFailure(s, fbads.ErrConflict)
	assert.Equal(t, EntityDetail, next.Level)
	assert.Nil(t, next.Pending)
}

func TestResolveFailureNotFoundResetsHome(t *testing.T) {
	s := confirmState(t)
	next, advisory := ResolveFailure(s, fbads.ErrNotFound)
	assert.Equal(t, AccountList, next.Level)
	assert.Empty(t, next.Crumbs)
	assert.Nil(t, next.Pending)
	assert.NotEmpty(t, advisory)
}

func TestResolveFailureOnListFetchKeepsPosition(t *testing.T) {
	s := drillToAdList(t)
	next, advisory := ResolveFailure(s, fbads.ErrPlatformUnavailable)
	assert.Equal(t, s.Level, next.Level)
	assert.Equal(t, s.Crumbs, next.Crumbs)
	assert.NotEmpty(t, advisory)
}
