package bot

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marktr/adsbot/fbads"
	"github.com/marktr/adsbot/nav"
)

func campaignListState() nav.State {
	s := nav.NewState()
	s, _ = nav.Transition(s, nav.Event{Kind: nav.EvSelectAccount, EntityID: "act_1", EntityName: "Clinic A"})
	return s
}

func TestListScreenIntermediateLevelHasInspectButtons(t *testing.T) {
	s := campaignListState()
	page := fbads.Page{
		Entities: []fbads.Entity{
			{ID: "c1", Name: "Lead Gen", Status: fbads.StatusActive},
			{ID: "c2", Name: "Retargeting", Status: fbads.StatusPaused},
		},
		NextCursor: "AAA",
	}

	scr := ListScreen(s, page, "")
	require.NotNil(t, scr.Keyboard)
	rows := scr.Keyboard.InlineKeyboard

	require.Len(t, rows[0], 2, "campaign rows carry a detail button")
	assert.Contains(t, rows[0][0].Text, "✅")
	assert.Contains(t, rows[0][0].Text, "Lead Gen")
	assert.Equal(t, "ℹ️", rows[0][1].Text)
	assert.Contains(t, rows[1][0].Text, "⏸")

	pager := rows[len(rows)-2]
	require.Len(t, pager, 1, "first page shows only the forward arrow")
	assert.Equal(t, "➡️", pager[0].Text)

	footer := rows[len(rows)-1]
	assert.Contains(t, footer[0].Text, "Back")
	assert.Contains(t, footer[1].Text, "Home")
}

func TestListScreenAdLevelHasNoInspectButton(t *testing.T) {
	s := campaignListState()
	s, _ = nav.Transition(s, nav.Event{Kind: nav.EvSelectCampaign, EntityID: "c1", EntityName: "Lead Gen"})
	s, _ = nav.Transition(s, nav.Event{Kind: nav.EvSelectAdSet, EntityID: "as1", EntityName: "Lookalike"})
	require.Equal(t, nav.AdList, s.Level)

	scr := ListScreen(s, fbads.Page{
		Entities: []fbads.Entity{{ID: "ad1", Name: "Video A", Status: fbads.StatusActive}},
	}, "")
	assert.Len(t, scr.Keyboard.InlineKeyboard[0], 1, "ads open detail on tap")
}

func TestListScreenSinglePageHasNoPager(t *testing.T) {
	scr := ListScreen(campaignListState(), fbads.Page{
		Entities: []fbads.Entity{{ID: "c1", Name: "Lead Gen", Status: fbads.StatusActive}},
	}, "")
	rows := scr.Keyboard.InlineKeyboard
	require.Len(t, rows, 2, "entity row plus footer, no pager row")
}

func TestDetailScreenOffersOppositeAction(t *testing.T) {
	s := campaignListState()
	s, _ = nav.Transition(s, nav.Event{Kind: nav.EvInspectEntity, EntityID: "c1", EntityName: "Lead Gen"})

	active := DetailScreen(s, fbads.EntityDetail{
		Entity: fbads.Entity{ID: "c1", Name: "Lead Gen", Status: fbads.StatusActive, Level: fbads.LevelCampaign},
	}, "")
	assert.Contains(t, active.Keyboard.InlineKeyboard[0][0].Text, "Pause")

	paused := DetailScreen(s, fbads.EntityDetail{
		Entity: fbads.Entity{ID: "c1", Name: "Lead Gen", Status: fbads.StatusPaused, Level: fbads.LevelCampaign},
	}, "")
	assert.Contains(t, paused.Keyboard.InlineKeyboard[0][0].Text, "Resume")

	archived := DetailScreen(s, fbads.EntityDetail{
		Entity: fbads.Entity{ID: "c1", Name: "Old", Status: fbads.StatusArchived, Level: fbads.LevelCampaign},
	}, "")
	require.Len(t, archived.Keyboard.InlineKeyboard, 1, "archived entities get no status control")
}

func TestScreensEscapeMarkdown(t *testing.T) {
	s := campaignListState()
	s, _ = nav.Transition(s, nav.Event{Kind: nav.EvInspectEntity, EntityID: "c1", EntityName: "Dr. Ana (Promo)"})

	scr := DetailScreen(s, fbads.EntityDetail{
		Entity: fbads.Entity{ID: "c1", Name: "Dr. Ana (Promo)", Status: fbads.StatusActive},
	}, "")
	assert.Contains(t, scr.Text, `Dr\. Ana \(Promo\)`)
	assert.NotContains(t, scr.Text, "Dr. Ana (Promo)")
}

func TestConfirmScreenNamesTheAction(t *testing.T) {
	s := campaignListState()
	s, _ = nav.Transition(s, nav.Event{Kind: nav.EvInspectEntity, EntityID: "c1", EntityName: "Lead Gen"})
	s, _ = nav.Transition(s, nav.Event{Kind: nav.EvRequestResume})

	scr := ConfirmScreen(s, "")
	assert.Contains(t, scr.Text, "Resume")
	assert.Contains(t, scr.Text, "Lead Gen")

	row := scr.Keyboard.InlineKeyboard[0]
	require.Len(t, row, 2)
	assert.Contains(t, row[0].Text, "Confirm")
	assert.Contains(t, row[1].Text, "Cancel")
}

func TestEntityPayloadRoundTrip(t *testing.T) {
	payload := encodeEntity("23851234567890123", "Glow | Summer Promo Campaign Extended")
	assert.LessOrEqual(t, len(payload), 60, "payload fits the callback data budget")

	id, name := decodeEntity(payload)
	assert.Equal(t, "23851234567890123", id)
	assert.True(t, strings.HasPrefix(name, "Glow"))
	assert.NotContains(t, name[len("Glow "):], "|", "the separator never survives into the name")
}
