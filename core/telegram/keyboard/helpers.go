package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, len(rows))
	for i, row := range rows {
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = *markup.Data(btn.Text, btn.Unique, btn.Data).Inline()
		}
		inline[i] = r
	}
	markup.InlineKeyboard = inline
	return markup
}

// PagerRow builds a prev/next navigation row. Buttons for unavailable
// directions are omitted so a single-page list renders no pager at all.
func PagerRow(unique string, hasPrev, hasNext bool) []InlineBtn {
	var row []InlineBtn
	if hasPrev {
		row = append(row, InlineBtn{Text: "⬅️", Unique: unique, Data: "prev"})
	}
	if hasNext {
		row = append(row, InlineBtn{Text: "➡️", Unique: unique, Data: "next"})
	}
	return row
}

// NavRow builds the standard back/home footer row.
func NavRow(backUnique, homeUnique string) []InlineBtn {
	return []InlineBtn{
		{Text: "⬅️ Back", Unique: backUnique, Data: "back"},
		{Text: "🏠 Home", Unique: homeUnique, Data: "home"},
	}
}
