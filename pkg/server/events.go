package server

import (
	"github.com/shawkym/chatpane/pkg/widget"
)

// wireEvent is the JSON pushed to the page. The page script applies it to
// the element named by Target.
type wireEvent struct {
	Type    string       `json:"type"`
	Target  string       `json:"target,omitempty"`
	HTML    string       `json:"html,omitempty"`
	Started bool         `json:"started,omitempty"`
	Buttons *wireButtons `json:"buttons,omitempty"`
	Scroll  bool         `json:"scroll,omitempty"`
}

type wireButtons struct {
	Mic  bool `json:"mic"`
	Send bool `json:"send"`
}

func encodeButtons(b widget.Buttons) *wireButtons {
	return &wireButtons{Mic: b.MicVisible, Send: b.SendVisible}
}

// encodeEvent renders the markup an event carries.
func encodeEvent(ev widget.Event) (wireEvent, error) {
	wire := wireEvent{Type: string(ev.Kind)}

	switch ev.Kind {
	case widget.EventView:
		wire.Started = ev.View.Started
	case widget.EventAppend:
		html, err := widget.RenderMessage(ev.Message)
		if err != nil {
			return wire, err
		}
		wire.Target = "chat-messages"
		wire.HTML = html
		wire.Scroll = ev.Scroll
	case widget.EventInput:
		wire.Target = "chatbox"
	case widget.EventButtons:
		wire.Buttons = encodeButtons(ev.Buttons)
	case widget.EventPanel:
		html, err := widget.RenderPanel(ev.Panel)
		if err != nil {
			return wire, err
		}
		wire.Target = ev.Panel.ID
		wire.HTML = html
	case widget.EventNotifications:
		html, err := widget.RenderNotifications(ev.Panels)
		if err != nil {
			return wire, err
		}
		wire.Target = "notify-container"
		wire.HTML = html
	}
	return wire, nil
}
