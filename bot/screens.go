package bot

import (
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/marktr/adsbot/core/telegram/format"
	"github.com/marktr/adsbot/core/telegram/keyboard"
	"github.com/marktr/adsbot/fbads"
	"github.com/marktr/adsbot/nav"
)

// Callback uniques used by the navigation keyboards.
const (
	cbEntity  = "ent" // tap a list row, payload "<id>|<name>"
	cbInspect = "inf" // open detail from an intermediate list
	cbPager   = "pg"  // payload "prev"/"next"
	cbNav     = "nv"  // payload "back"/"home"
	cbAction  = "act" // payload "pause"/"resume"
	cbConfirm = "cfm" // payload "confirm"/"cancel"
)

// payloadNameLimit keeps the entity name inside Telegram's 64-byte
// callback data budget alongside a Graph entity ID.
const payloadNameLimit = 24

// Screen is one rendered chat surface: MarkdownV2 text plus an inline
// keyboard. Screens are produced pure and delivered edit-or-send.
type Screen struct {
	Text     string
	Keyboard *tele.ReplyMarkup
}

func encodeEntity(id, name string) string {
	name = strings.ReplaceAll(name, "|", " ")
	runes := []rune(name)
	if len(runes) > payloadNameLimit {
		name = string(runes[:payloadNameLimit])
	}
	return id + "|" + name
}

func decodeEntity(payload string) (id, name string) {
	parts := strings.SplitN(payload, "|", 2)
	id = parts[0]
	if len(parts) == 2 {
		name = parts[1]
	}
	return id, name
}

func statusEmoji(status fbads.Status) string {
	switch status {
	case fbads.StatusActive:
		return "✅"
	case fbads.StatusPaused:
		return "⏸"
	case fbads.StatusArchived:
		return "📦"
	case fbads.StatusDeleted:
		return "🗑"
	default:
		return "▫️"
	}
}

// breadcrumb renders the selected path, root first.
func breadcrumb(s nav.State) string {
	parts := []string{"Accounts"}
	for _, crumb := range s.Crumbs {
		parts = append(parts, crumb.Name)
	}
	if s.Detail != nil {
		parts = append(parts, s.Detail.Name)
	}
	return strings.Join(parts, " › ")
}

func listTitle(level nav.Level) string {
	switch level {
	case nav.AccountList:
		return "Ad accounts"
	case nav.CampaignList:
		return "Campaigns"
	case nav.AdSetList:
		return "Ad sets"
	case nav.AdList:
		return "Ads"
	default:
		return ""
	}
}

// AccountsScreen renders the root account list.
func AccountsScreen(s nav.State, accounts []fbads.AdAccount, advisory string) Screen {
	var b strings.Builder
	writeAdvisory(&b, advisory)
	b.WriteString("*" + format.EscapeMDV2(listTitle(nav.AccountList)) + "*\n")
	if len(accounts) == 0 {
		b.WriteString("\nNo ad accounts visible to this token\\.")
	}

	var rows [][]keyboard.InlineBtn
	for _, acc := range accounts {
		label := acc.Name
		if acc.Currency != "" {
			label = fmt.Sprintf("%s (%s)", acc.Name, acc.Currency)
		}
		rows = append(rows, []keyboard.InlineBtn{{
			Text:   label,
			Unique: cbEntity,
			Data:   encodeEntity(acc.ID, acc.Name),
		}})
	}
	return Screen{Text: b.String(), Keyboard: keyboard.InlineButtonsRows(rows...)}
}

// ListScreen renders one page of campaigns, ad sets or ads.
func ListScreen(s nav.State, page fbads.Page, advisory string) Screen {
	var b strings.Builder
	writeAdvisory(&b, advisory)
	fmt.Fprintf(&b, "*%s*\n_%s_\n",
		format.EscapeMDV2(listTitle(s.Level)),
		format.EscapeMDV2(breadcrumb(s)))
	if len(page.Entities) == 0 {
		b.WriteString("\nNothing here\\.")
	}

	var rows [][]keyboard.InlineBtn
	for _, ent := range page.Entities {
		payload := encodeEntity(ent.ID, ent.Name)
		row := []keyboard.InlineBtn{{
			Text:   statusEmoji(ent.Status) + " " + ent.Name,
			Unique: cbEntity,
			Data:   payload,
		}}
		// Ads open their detail directly; intermediate levels drill down
		// on tap and need a separate button for the detail view.
		if s.Level != nav.AdList {
			row = append(row, keyboard.InlineBtn{Text: "ℹ️", Unique: cbInspect, Data: payload})
		}
		rows = append(rows, row)
	}
	if pager := keyboard.PagerRow(cbPager, page.PrevCursor != "", page.NextCursor != ""); len(pager) > 0 {
		rows = append(rows, pager)
	}
	rows = append(rows, keyboard.NavRow(cbNav, cbNav))
	return Screen{Text: b.String(), Keyboard: keyboard.InlineButtonsRows(rows...)}
}

// DetailScreen renders one entity with its pause/resume control.
func DetailScreen(s nav.State, d fbads.EntityDetail, advisory string) Screen {
	var b strings.Builder
	writeAdvisory(&b, advisory)
	fmt.Fprintf(&b, "*%s*\n_%s_\n\n",
		format.EscapeMDV2(d.Name),
		format.EscapeMDV2(breadcrumb(s)))
	fmt.Fprintf(&b, "Level: %s\n", format.EscapeMDV2(d.Level.String()))
	fmt.Fprintf(&b, "Status: %s %s\n", statusEmoji(d.Status), format.EscapeMDV2(string(d.Status)))
	if d.EffectiveStatus != "" && d.EffectiveStatus != string(d.Status) {
		fmt.Fprintf(&b, "Effective: %s\n", format.EscapeMDV2(d.EffectiveStatus))
	}
	if d.DailyBudget != "" {
		fmt.Fprintf(&b, "Daily budget: %s\n", format.EscapeMDV2(d.DailyBudget))
	}
	if d.LifetimeBudget != "" {
		fmt.Fprintf(&b, "Lifetime budget: %s\n", format.EscapeMDV2(d.LifetimeBudget))
	}
	if d.ObjectiveOrOpt != "" {
		fmt.Fprintf(&b, "Objective: %s\n", format.EscapeMDV2(d.ObjectiveOrOpt))
	}
	if d.UpdatedTime != "" {
		fmt.Fprintf(&b, "Updated: %s\n", format.EscapeMDV2(d.UpdatedTime))
	}

	var rows [][]keyboard.InlineBtn
	switch d.Status {
	case fbads.StatusActive:
		rows = append(rows, []keyboard.InlineBtn{{Text: "⏸ Pause", Unique: cbAction, Data: "pause"}})
	case fbads.StatusPaused:
		rows = append(rows, []keyboard.InlineBtn{{Text: "▶️ Resume", Unique: cbAction, Data: "resume"}})
	}
	rows = append(rows, keyboard.NavRow(cbNav, cbNav))
	return Screen{Text: b.String(), Keyboard: keyboard.InlineButtonsRows(rows...)}
}

// ConfirmScreen renders the two-step confirmation for a status change.
// It needs no fetched data, everything comes from the pending action.
func ConfirmScreen(s nav.State, advisory string) Screen {
	var b strings.Builder
	writeAdvisory(&b, advisory)
	if s.Pending == nil {
		b.WriteString("Nothing to confirm\\.")
		return Screen{Text: b.String(), Keyboard: keyboard.InlineButtonsRows(keyboard.NavRow(cbNav, cbNav))}
	}

	verb := "Pause"
	if s.Pending.Kind == nav.ActionResume {
		verb = "Resume"
	}
	fmt.Fprintf(&b, "%s *%s*?\n\nThe change takes effect immediately\\.",
		format.EscapeMDV2(verb),
		format.EscapeMDV2(s.Pending.EntityName))

	rows := [][]keyboard.InlineBtn{
		{
			{Text: "✅ Confirm", Unique: cbConfirm, Data: "confirm"},
			{Text: "❌ Cancel", Unique: cbConfirm, Data: "cancel"},
		},
		keyboard.NavRow(cbNav, cbNav),
	}
	return Screen{Text: b.String(), Keyboard: keyboard.InlineButtonsRows(rows...)}
}

// FallbackScreen is rendered when a screen's data cannot be loaded at
// all: the advisory plus a way home, nothing else.
func FallbackScreen(advisory string) Screen {
	text := format.EscapeMDV2(advisory)
	if text == "" {
		text = "Something went wrong\\."
	}
	home := [][]keyboard.InlineBtn{{{Text: "🏠 Home", Unique: cbNav, Data: "home"}}}
	return Screen{Text: text, Keyboard: keyboard.InlineButtonsRows(home...)}
}

func writeAdvisory(b *strings.Builder, advisory string) {
	if advisory == "" {
		return
	}
	fmt.Fprintf(b, "_%s_\n\n", format.EscapeMDV2(advisory))
}
