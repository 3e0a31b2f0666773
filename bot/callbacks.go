package bot

import (
	tele "gopkg.in/telebot.v4"

	coretelegram "github.com/marktr/adsbot/core/telegram"
	"github.com/marktr/adsbot/core/telegram/callbacks"
	tghelpers "github.com/marktr/adsbot/core/telegram/helpers"
	"github.com/marktr/adsbot/nav"
)

// registerNavCallbacks binds the keyboard uniques to navigation events.
// Every handler funnels through the driver, so session locking and
// failure folding apply uniformly.
func registerNavCallbacks(reg *coretelegram.Registry, d *Driver) error {
	handle := func(makeEvent func(tele.Context, nav.State) nav.Event) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Chat() == nil {
				return nil
			}
			ctx := tghelpers.BuildContext(c)
			return d.Apply(ctx, c.Chat().ID, func(s nav.State) nav.Event {
				return makeEvent(c, s)
			}, func(scr Screen) error {
				return tghelpers.EditOrSendMDV2(c, scr.Text, scr.Keyboard)
			})
		}
	}

	handlers := map[string]tele.HandlerFunc{
		cbEntity: handle(func(c tele.Context, s nav.State) nav.Event {
			id, name := decodeEntity(callbacks.CallbackPayload(c))
			return nav.Event{Kind: selectEventFor(s.Level), EntityID: id, EntityName: name}
		}),
		cbInspect: handle(func(c tele.Context, _ nav.State) nav.Event {
			id, name := decodeEntity(callbacks.CallbackPayload(c))
			return nav.Event{Kind: nav.EvInspectEntity, EntityID: id, EntityName: name}
		}),
		cbPager: handle(func(c tele.Context, _ nav.State) nav.Event {
			if callbacks.CallbackPayload(c) == "next" {
				return nav.Event{Kind: nav.EvNextPage}
			}
			return nav.Event{Kind: nav.EvPrevPage}
		}),
		cbNav: handle(func(c tele.Context, _ nav.State) nav.Event {
			if callbacks.CallbackPayload(c) == "home" {
				return nav.Event{Kind: nav.EvHome}
			}
			return nav.Event{Kind: nav.EvBack}
		}),
		cbAction: handle(func(c tele.Context, _ nav.State) nav.Event {
			if callbacks.CallbackPayload(c) == "resume" {
				return nav.Event{Kind: nav.EvRequestResume}
			}
			return nav.Event{Kind: nav.EvRequestPause}
		}),
		cbConfirm: handle(func(c tele.Context, _ nav.State) nav.Event {
			if callbacks.CallbackPayload(c) == "confirm" {
				return nav.Event{Kind: nav.EvConfirmAction}
			}
			return nav.Event{Kind: nav.EvCancelAction}
		}),
	}

	for key, h := range handlers {
		if err := reg.RegisterCallback(key, h); err != nil {
			return err
		}
	}
	return nil
}
