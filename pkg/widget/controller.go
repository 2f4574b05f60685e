package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shawkym/chatpane/pkg/log"
)

// Bridge is the backend the controller talks to. ChainStart submits a user
// message and returns the raw structured reply. GetNotifications returns the
// raw notifications payload.
type Bridge interface {
	ChainStart(ctx context.Context, message string) (json.RawMessage, error)
	GetNotifications(ctx context.Context) (json.RawMessage, error)
}

// Recorder receives usage counters. A nil Recorder disables recording.
type Recorder interface {
	RecordSend()
	RecordBridgeCall(call string, err error, duration time.Duration)
	RecordReply(kind string)
	RecordPanels(kind string, n int)
}

// EventKind names what changed on the page.
type EventKind string

const (
	EventView          EventKind = "view"
	EventAppend        EventKind = "append"
	EventInput         EventKind = "input"
	EventButtons       EventKind = "buttons"
	EventPanel         EventKind = "panel"
	EventNotifications EventKind = "notifications"
)

// Event describes one change to the page. Only the fields relevant to Kind
// are set. Append events always ask the front to scroll to the bottom.
type Event struct {
	Kind    EventKind
	View    ViewState
	Message Message
	Input   string
	Buttons Buttons
	Panel   Panel
	Panels  []Panel
	Scroll  bool
}

// Options configures a Controller.
type Options struct {
	SessionID string
	Sanitizer Sanitizer
	Recorder  Recorder
}

// Controller owns one page and serializes every mutation of it. Bridge
// replies may arrive in any order; each is applied atomically when it does.
type Controller struct {
	bridge    Bridge
	sanitizer Sanitizer
	recorder  Recorder
	sessionID string

	mu        sync.Mutex
	page      Page
	pending   int
	listeners []func(Event)

	wg sync.WaitGroup
}

// NewController creates a controller with a fresh page.
func NewController(bridge Bridge, opts Options) *Controller {
	s := opts.Sanitizer
	if s == nil {
		s = Trusted{}
	}
	return &Controller{
		bridge:    bridge,
		sanitizer: s,
		recorder:  opts.Recorder,
		sessionID: opts.SessionID,
		page:      NewPage(),
	}
}

// Subscribe registers fn to receive every subsequent event. Listeners run
// with the page lock held and must not block or call back into the controller.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Snapshot returns a copy of the current page.
func (c *Controller) Snapshot() Page {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.page.Clone()
}

// SetInput records the current input text and updates the buttons for it.
// While a reply is pending the buttons stay hidden.
func (c *Controller) SetInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.page.Input = text
	if c.pending > 0 {
		return
	}
	c.setButtons(ButtonsForInput(text))
}

// Send submits text as a chat message. Blank input is ignored and reported
// as false. Otherwise the chat view is started, the user bubble appended,
// the input cleared and the bridge called in the background. ctx only
// carries values: the background call outlives it.
func (c *Controller) Send(ctx context.Context, text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}

	c.mu.Lock()
	c.startChat()
	c.emit(Event{Kind: EventAppend, Message: c.page.AppendUser(text), Scroll: true})
	c.page.Input = ""
	c.emit(Event{Kind: EventInput})
	c.pending++
	c.setButtons(AwaitingButtons())
	c.wg.Add(1)
	c.mu.Unlock()

	if c.recorder != nil {
		c.recorder.RecordSend()
	}

	go c.dispatch(context.WithoutCancel(ctx), text)
	return true
}

// Wait blocks until every in-flight chat call has been applied.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// OpenSidebar fetches notifications and rebuilds the sidebar from them. The
// container is cleared on every call; when calls overlap the last one to
// complete wins.
func (c *Controller) OpenSidebar(ctx context.Context) []Panel {
	start := time.Now()
	raw, err := c.bridge.GetNotifications(ctx)
	c.recordCall("get_notifications", err, start)

	var items []NotificationItem
	if err == nil {
		items, err = NormalizeNotifications(raw)
	}

	var panels []Panel
	if err != nil {
		c.logger().WithError(err).Error("failed to load notifications")
		panels = ErrorPanels()
	} else {
		panels = NotificationPanels(items, c.sanitizer)
	}
	if c.recorder != nil {
		c.recorder.RecordPanels(string(panels[0].Kind), len(panels))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	panels = c.page.ReplaceNotifications(panels)
	c.emit(Event{Kind: EventNotifications, Panels: panels})
	return panels
}

// TogglePanel flips the panel with the given id.
func (c *Controller) TogglePanel(id string) (Panel, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	panel, ok := c.page.TogglePanel(id)
	if ok {
		c.emit(Event{Kind: EventPanel, Panel: panel})
	}
	return panel, ok
}

func (c *Controller) dispatch(ctx context.Context, text string) {
	defer c.wg.Done()
	// Runs after the unlock and settle defers below, so a panicking
	// listener or sanitizer still leaves the buttons restored.
	defer func() {
		if r := recover(); r != nil {
			c.logger().WithField("panic", fmt.Sprint(r)).Error("reply handling panicked")
		}
	}()

	start := time.Now()
	raw, err := c.bridge.ChainStart(ctx, text)
	c.recordCall("chain_start", err, start)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.settle()

	if err != nil {
		c.logger().WithError(err).Error("chat request failed")
		return
	}
	c.route(DecodeReply(raw))
}

// settle restores the input buttons once no reply is pending.
func (c *Controller) settle() {
	c.pending--
	if c.pending == 0 {
		c.setButtons(ButtonsForInput(c.page.Input))
	}
}

func (c *Controller) route(reply Reply) {
	switch r := reply.(type) {
	case VideoReply:
		c.recordReply("video")
		c.renderVideos(r.Videos)
	case ChatReply:
		c.recordReply("chat")
		c.renderChat(r.Text)
	case UnknownReply:
		c.recordReply("unknown")
		c.logger().WithField("tool", r.Tool).Debug("unrecognized reply, showing as text")
		c.renderChat(r.Text)
	default:
		panic(fmt.Sprintf("widget: unhandled reply type %T", reply))
	}
}

func (c *Controller) renderChat(text string) {
	if text == "" {
		return
	}
	msg := c.page.AppendAssistant(c.sanitizer.Sanitize(Format(text)))
	c.emit(Event{Kind: EventAppend, Message: msg, Scroll: true})
}

func (c *Controller) renderVideos(videos []VideoResult) {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		panel, err := VideoPanel(v, c.sanitizer)
		if err != nil {
			c.logger().WithError(err).Error("failed to render video card")
			continue
		}
		msg := c.page.AppendPanel(panel)
		ids = append(ids, msg.Panel.ID)
		c.emit(Event{Kind: EventAppend, Message: msg, Scroll: true})
	}

	// Cards are shown expanded once they are all in place.
	for _, id := range ids {
		if panel, ok := c.page.RevealPanel(id); ok {
			c.emit(Event{Kind: EventPanel, Panel: panel})
		}
	}
	if c.recorder != nil && len(ids) > 0 {
		c.recorder.RecordPanels(string(PanelVideo), len(ids))
	}
}

func (c *Controller) startChat() {
	if c.page.View.Started {
		return
	}
	c.page.View = StartChat(c.page.View)
	c.emit(Event{Kind: EventView, View: c.page.View})
}

func (c *Controller) setButtons(b Buttons) {
	if c.page.Buttons == b {
		return
	}
	c.page.Buttons = b
	c.emit(Event{Kind: EventButtons, Buttons: b})
}

func (c *Controller) emit(ev Event) {
	for _, fn := range c.listeners {
		fn(ev)
	}
}

func (c *Controller) recordCall(call string, err error, start time.Time) {
	if c.recorder != nil {
		c.recorder.RecordBridgeCall(call, err, time.Since(start))
	}
}

func (c *Controller) recordReply(kind string) {
	if c.recorder != nil {
		c.recorder.RecordReply(kind)
	}
}

func (c *Controller) logger() *log.Entry {
	return log.WithField("session_id", c.sessionID)
}
