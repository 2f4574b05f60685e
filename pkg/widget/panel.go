package widget

// PanelKind selects the markup classes of a panel.
type PanelKind string

const (
	PanelVideo        PanelKind = "video"
	PanelNotification PanelKind = "notif"
	PanelEmpty        PanelKind = "empty"
	PanelError        PanelKind = "error"
)

const (
	emptyNotificationsText = "No notifications yet"
	errorNotificationsText = "Error loading notifications"
)

// Panel is a collapsible card: a clickable header and a body whose
// visibility is toggled by clicking the header. Placeholder panels have no
// header and cannot be toggled.
type Panel struct {
	ID          string
	Kind        PanelKind
	Header      string
	Body        string
	BodyVisible bool
	Open        bool
}

// Placeholder reports whether the panel is a single-line notice rather than a card.
func (p Panel) Placeholder() bool {
	return p.Kind == PanelEmpty || p.Kind == PanelError
}

// Toggle flips body visibility and sets the open marker to match the new
// visibility. Placeholders are returned unchanged.
func Toggle(p Panel) Panel {
	if p.Placeholder() {
		return p
	}
	visible := !p.BodyVisible
	p.BodyVisible = visible
	p.Open = visible
	return p
}

// Reveal forces the body visible without touching the open marker. Video
// cards are revealed right after insertion, so they show expanded while
// still reporting closed; the first header click hides them.
func Reveal(p Panel) Panel {
	if p.Placeholder() {
		return p
	}
	p.BodyVisible = true
	return p
}

// VideoPanel builds the card for one video result. Header and body are
// trusted markup passed through s. The body starts hidden; callers reveal it
// once the card is in the transcript.
func VideoPanel(v VideoResult, s Sanitizer) (Panel, error) {
	body, err := renderVideoBody(v)
	if err != nil {
		return Panel{}, err
	}
	return Panel{
		Kind:   PanelVideo,
		Header: sanitize(s, v.Title),
		Body:   sanitize(s, body),
	}, nil
}

// NotificationPanels builds the sidebar content for items. An empty list
// yields the single "No notifications yet" placeholder.
func NotificationPanels(items []NotificationItem, s Sanitizer) []Panel {
	if len(items) == 0 {
		return []Panel{{Kind: PanelEmpty, Body: emptyNotificationsText}}
	}

	panels := make([]Panel, 0, len(items))
	for _, item := range items {
		panels = append(panels, Panel{
			Kind:   PanelNotification,
			Header: "@" + sanitize(s, item.Username),
			Body:   sanitize(s, item.Message),
		})
	}
	return panels
}

// ErrorPanels is the sidebar content after a failed notifications fetch.
func ErrorPanels() []Panel {
	return []Panel{{Kind: PanelError, Body: errorNotificationsText}}
}

func sanitize(s Sanitizer, markup string) string {
	if s == nil {
		return markup
	}
	return s.Sanitize(markup)
}
