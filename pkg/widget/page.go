// Package widget is the presentation layer of the chat pane. It owns the
// view-model of one page (transcript, welcome/chat toggle, input buttons and
// the notifications sidebar), turns bridge replies into rendered content and
// renders that content as HTML fragments.
//
// The package never talks to a browser or terminal directly. Fronts subscribe
// to a Controller, apply the Events it emits and feed user actions back in.
package widget

import "fmt"

// Role identifies who authored a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript bubble. User content is raw text and is always
// escaped when rendered. Assistant content is trusted inline markup and is
// injected verbatim. Assistant bubbles that host a video card carry it in Panel.
type Message struct {
	ID      string
	Role    Role
	Content string
	Panel   *Panel
}

func (m Message) clone() Message {
	if m.Panel != nil {
		p := *m.Panel
		m.Panel = &p
	}
	return m
}

// ViewState tracks whether the transcript is showing instead of the welcome
// screen. Started never reverts to false within a page session.
type ViewState struct {
	Started bool
}

// StartChat moves the page from the welcome layout to the chat layout.
// Calling it on an already started state returns the state unchanged.
func StartChat(v ViewState) ViewState {
	v.Started = true
	return v
}

// Buttons is the visibility of the two input affordances.
type Buttons struct {
	MicVisible  bool
	SendVisible bool
}

// ButtonsForInput shows the microphone for empty input and the send button
// otherwise. The input is not trimmed: a single space already shows send.
func ButtonsForInput(text string) Buttons {
	if len(text) == 0 {
		return Buttons{MicVisible: true}
	}
	return Buttons{SendVisible: true}
}

// AwaitingButtons is the state while a chat reply is pending: both hidden.
func AwaitingButtons() Buttons {
	return Buttons{}
}

// Page is the complete view-model of one page session.
type Page struct {
	View          ViewState
	Buttons       Buttons
	Input         string
	Transcript    []Message
	Notifications []Panel

	seq int
}

// NewPage returns the state of a freshly loaded page: welcome view, empty
// input and the microphone showing.
func NewPage() Page {
	return Page{Buttons: ButtonsForInput("")}
}

// AppendUser appends a right-aligned user bubble holding text verbatim.
func (p *Page) AppendUser(text string) Message {
	return p.append(Message{Role: RoleUser, Content: text})
}

// AppendAssistant appends a left-aligned assistant bubble holding markup.
func (p *Page) AppendAssistant(markup string) Message {
	return p.append(Message{Role: RoleAssistant, Content: markup})
}

// AppendPanel appends an assistant bubble that hosts panel. The panel gets a
// page-unique id.
func (p *Page) AppendPanel(panel Panel) Message {
	p.seq++
	panel.ID = fmt.Sprintf("%s-box-%d", panel.Kind, p.seq)
	return p.append(Message{Role: RoleAssistant, Panel: &panel})
}

func (p *Page) append(m Message) Message {
	p.seq++
	m.ID = fmt.Sprintf("msg-%d", p.seq)
	p.Transcript = append(p.Transcript, m)
	return m.clone()
}

// ReplaceNotifications clears the sidebar container and fills it with panels.
// Ids are positional, matching a container that is rebuilt on every open.
func (p *Page) ReplaceNotifications(panels []Panel) []Panel {
	p.Notifications = make([]Panel, len(panels))
	for i, panel := range panels {
		panel.ID = fmt.Sprintf("notif-box-%d", i)
		p.Notifications[i] = panel
	}
	return p.copyNotifications()
}

// TogglePanel flips the panel with the given id, wherever it lives.
func (p *Page) TogglePanel(id string) (Panel, bool) {
	return p.updatePanel(id, Toggle)
}

// RevealPanel forces the body of the panel with the given id visible.
func (p *Page) RevealPanel(id string) (Panel, bool) {
	return p.updatePanel(id, Reveal)
}

func (p *Page) updatePanel(id string, fn func(Panel) Panel) (Panel, bool) {
	for i := range p.Notifications {
		if p.Notifications[i].ID == id {
			p.Notifications[i] = fn(p.Notifications[i])
			return p.Notifications[i], true
		}
	}
	for i := range p.Transcript {
		if panel := p.Transcript[i].Panel; panel != nil && panel.ID == id {
			*panel = fn(*panel)
			return *panel, true
		}
	}
	return Panel{}, false
}

// Clone returns a deep copy that shares nothing with p.
func (p Page) Clone() Page {
	out := p
	out.Transcript = make([]Message, len(p.Transcript))
	for i, m := range p.Transcript {
		out.Transcript[i] = m.clone()
	}
	out.Notifications = p.copyNotifications()
	return out
}

func (p Page) copyNotifications() []Panel {
	if p.Notifications == nil {
		return nil
	}
	return append([]Panel(nil), p.Notifications...)
}
