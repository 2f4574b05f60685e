package widget

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeBridge struct {
	mu            sync.Mutex
	replies       map[string]json.RawMessage
	gates         map[string]chan struct{}
	chatErr       error
	notifications json.RawMessage
	notifyErr     error
	sent          []string
}

func (b *fakeBridge) ChainStart(ctx context.Context, message string) (json.RawMessage, error) {
	b.mu.Lock()
	b.sent = append(b.sent, message)
	gate := b.gates[message]
	reply := b.replies[message]
	err := b.chatErr
	b.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return reply, err
}

func (b *fakeBridge) GetNotifications(ctx context.Context) (json.RawMessage, error) {
	return b.notifications, b.notifyErr
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) record(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) kinds() []EventKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]EventKind, len(l.events))
	for i, ev := range l.events {
		out[i] = ev.Kind
	}
	return out
}

type fakeRecorder struct {
	mu      sync.Mutex
	sends   int
	calls   map[string]int
	replies map[string]int
	panels  map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{calls: map[string]int{}, replies: map[string]int{}, panels: map[string]int{}}
}

func (r *fakeRecorder) RecordSend() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends++
}

func (r *fakeRecorder) RecordBridgeCall(call string, err error, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[call]++
}

func (r *fakeRecorder) RecordReply(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies[kind]++
}

func (r *fakeRecorder) RecordPanels(kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels[kind] += n
}

func newTestController(b *fakeBridge) (*Controller, *eventLog) {
	c := NewController(b, Options{SessionID: "test"})
	events := &eventLog{}
	c.Subscribe(events.record)
	return c, events
}

func TestSendIgnoresBlankInput(t *testing.T) {
	b := &fakeBridge{}
	c, events := newTestController(b)

	for _, in := range []string{"", "   ", "\n\t"} {
		if c.Send(context.Background(), in) {
			t.Errorf("Expected Send(%q) to be ignored", in)
		}
	}
	c.Wait()

	if len(events.kinds()) != 0 {
		t.Errorf("Expected no events, got %v", events.kinds())
	}
	if len(b.sent) != 0 {
		t.Errorf("Expected no bridge calls, got %v", b.sent)
	}
	if c.Snapshot().View.Started {
		t.Error("Expected welcome view to remain")
	}
}

func TestSendChatReply(t *testing.T) {
	b := &fakeBridge{replies: map[string]json.RawMessage{
		"hello": json.RawMessage(`{"tool":"chatcompanion","content":"**hi** there"}`),
	}}
	c, events := newTestController(b)
	c.SetInput("hello")

	if !c.Send(context.Background(), "hello") {
		t.Fatal("Expected Send to accept non-blank input")
	}
	c.Wait()

	page := c.Snapshot()
	if !page.View.Started {
		t.Error("Expected chat view after send")
	}
	if page.Input != "" {
		t.Errorf("Expected input cleared, got %q", page.Input)
	}
	if len(page.Transcript) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(page.Transcript))
	}
	if page.Transcript[0].Role != RoleUser || page.Transcript[0].Content != "hello" {
		t.Errorf("Expected user bubble 'hello', got %+v", page.Transcript[0])
	}
	if page.Transcript[1].Role != RoleAssistant || page.Transcript[1].Content != "<strong>hi</strong> there" {
		t.Errorf("Expected formatted assistant bubble, got %+v", page.Transcript[1])
	}
	if page.Buttons != ButtonsForInput("") {
		t.Errorf("Expected buttons restored for empty input, got %+v", page.Buttons)
	}

	want := []EventKind{EventButtons, EventView, EventAppend, EventInput, EventButtons, EventAppend, EventButtons}
	got := events.kinds()
	if strings.Join(kindStrings(got), ",") != strings.Join(kindStrings(want), ",") {
		t.Errorf("Expected events %v, got %v", want, got)
	}
	for _, ev := range events.events {
		if ev.Kind == EventAppend && !ev.Scroll {
			t.Error("Expected append events to scroll")
		}
	}
}

func TestStartChatOnlyOnce(t *testing.T) {
	b := &fakeBridge{}
	c, events := newTestController(b)

	c.Send(context.Background(), "one")
	c.Send(context.Background(), "two")
	c.Wait()

	views := 0
	for _, k := range events.kinds() {
		if k == EventView {
			views++
		}
	}
	if views != 1 {
		t.Errorf("Expected one view event, got %d", views)
	}
}

func TestSendVideoReply(t *testing.T) {
	b := &fakeBridge{replies: map[string]json.RawMessage{
		"cats": json.RawMessage(`{"tool":"youtubeagent","content":[
			{"title":"A","description":"first","embed_url":"https://e/a"},
			{"title":"B","description":"second","embed_url":"https://e/b"}]}`),
	}}
	rec := newFakeRecorder()
	c := NewController(b, Options{Recorder: rec})

	c.Send(context.Background(), "cats")
	c.Wait()

	page := c.Snapshot()
	if len(page.Transcript) != 3 {
		t.Fatalf("Expected user bubble plus 2 cards, got %d messages", len(page.Transcript))
	}
	for i, m := range page.Transcript[1:] {
		if m.Panel == nil || m.Panel.Kind != PanelVideo {
			t.Fatalf("Expected message %d to host a video card, got %+v", i+1, m)
		}
		if !m.Panel.BodyVisible {
			t.Errorf("Expected card %d body visible after insertion", i)
		}
		if m.Panel.Open {
			t.Errorf("Expected card %d open marker unset", i)
		}
	}
	if page.Transcript[1].Panel.ID == page.Transcript[2].Panel.ID {
		t.Error("Expected distinct card ids")
	}
	if page.Transcript[1].Panel.Header != "A" {
		t.Errorf("Expected first card header A, got %q", page.Transcript[1].Panel.Header)
	}

	if rec.sends != 1 || rec.replies["video"] != 1 || rec.panels["video"] != 2 || rec.calls["chain_start"] != 1 {
		t.Errorf("Unexpected recorder state: %+v", rec)
	}
}

func TestSendRendersNothing(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"empty video list", `{"tool":"youtubeagent","content":[]}`},
		{"empty chat", `{"tool":"chatcompanion","content":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBridge{replies: map[string]json.RawMessage{"q": json.RawMessage(tt.reply)}}
			c, _ := newTestController(b)
			c.Send(context.Background(), "q")
			c.Wait()

			if n := len(c.Snapshot().Transcript); n != 1 {
				t.Errorf("Expected only the user bubble, got %d messages", n)
			}
		})
	}
}

func TestSendUnknownReplyFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"unknown tool", `{"tool":"weather","content":"sunny"}`, "sunny"},
		{"empty content", `{"content":""}`, `{"content":""}`},
		{"unknown tool with empty content", `{"tool":"weather","content":""}`, `{"tool":"weather","content":""}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBridge{replies: map[string]json.RawMessage{"q": json.RawMessage(tt.reply)}}
			c, _ := newTestController(b)
			c.Send(context.Background(), "q")
			c.Wait()

			page := c.Snapshot()
			if len(page.Transcript) != 2 {
				t.Fatalf("Expected a fallback bubble, got %+v", page.Transcript)
			}
			if got := page.Transcript[1].Content; !strings.Contains(got, tt.want) {
				t.Errorf("Expected fallback bubble containing %q, got %q", tt.want, got)
			}
		})
	}
}

type panicSanitizer struct{}

func (panicSanitizer) Sanitize(string) string { panic("bad markup") }

func TestSendRecoversFromRenderPanic(t *testing.T) {
	b := &fakeBridge{replies: map[string]json.RawMessage{"q": json.RawMessage(`{"tool":"chatcompanion","content":"hi"}`)}}
	c := NewController(b, Options{SessionID: "test", Sanitizer: panicSanitizer{}})
	c.Send(context.Background(), "q")
	c.Wait()

	page := c.Snapshot()
	if page.Buttons != ButtonsForInput("") {
		t.Errorf("Expected buttons restored after a render panic, got %+v", page.Buttons)
	}
	if len(page.Transcript) != 1 {
		t.Errorf("Expected only the user bubble, got %d messages", len(page.Transcript))
	}

	// The controller stays usable.
	c.SetInput("next")
	if got := c.Snapshot().Buttons; got != ButtonsForInput("next") {
		t.Errorf("Expected send button after typing, got %+v", got)
	}
}

func TestSendBridgeFailure(t *testing.T) {
	b := &fakeBridge{chatErr: errors.New("connection refused")}
	c, _ := newTestController(b)
	c.Send(context.Background(), "hello")
	c.Wait()

	page := c.Snapshot()
	if len(page.Transcript) != 1 {
		t.Errorf("Expected no assistant bubble on failure, got %d messages", len(page.Transcript))
	}
	if page.Buttons != ButtonsForInput("") {
		t.Errorf("Expected buttons restored after failure, got %+v", page.Buttons)
	}
}

func TestRepliesAppliedInArrivalOrder(t *testing.T) {
	first := make(chan struct{})
	second := make(chan struct{})
	b := &fakeBridge{
		replies: map[string]json.RawMessage{
			"first":  json.RawMessage(`{"tool":"chatcompanion","content":"reply one"}`),
			"second": json.RawMessage(`{"tool":"chatcompanion","content":"reply two"}`),
		},
		gates: map[string]chan struct{}{"first": first, "second": second},
	}
	c, _ := newTestController(b)

	c.Send(context.Background(), "first")
	c.Send(context.Background(), "second")

	close(second)
	waitFor(t, func() bool { return len(c.Snapshot().Transcript) == 3 })
	if c.Snapshot().Buttons != AwaitingButtons() {
		t.Error("Expected buttons hidden while a reply is still pending")
	}
	close(first)
	c.Wait()

	var got []string
	for _, m := range c.Snapshot().Transcript {
		got = append(got, m.Content)
	}
	want := "first,second,reply two,reply one"
	if strings.Join(got, ",") != want {
		t.Errorf("Expected transcript %s, got %s", want, strings.Join(got, ","))
	}
}

func TestSetInputWhilePending(t *testing.T) {
	gate := make(chan struct{})
	b := &fakeBridge{gates: map[string]chan struct{}{"q": gate}}
	c, _ := newTestController(b)

	c.Send(context.Background(), "q")
	c.SetInput("typing")
	if c.Snapshot().Buttons != AwaitingButtons() {
		t.Errorf("Expected buttons to stay hidden while pending, got %+v", c.Snapshot().Buttons)
	}

	close(gate)
	c.Wait()
	if got := c.Snapshot().Buttons; got != ButtonsForInput("typing") {
		t.Errorf("Expected send button for pending input, got %+v", got)
	}
}

func TestOpenSidebar(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		err        error
		wantKind   PanelKind
		wantPanels int
	}{
		{"list", `[{"username":"a","message":"x"},{"username":"b","message":"y"}]`, nil, PanelNotification, 2},
		{"single object", `{"username":"a","message":"x"}`, nil, PanelNotification, 1},
		{"empty", `[]`, nil, PanelEmpty, 1},
		{"scalar", `"nope"`, nil, PanelEmpty, 1},
		{"bridge error", ``, errors.New("timeout"), PanelError, 1},
		{"malformed", `[{`, nil, PanelError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBridge{notifications: json.RawMessage(tt.payload), notifyErr: tt.err}
			c, events := newTestController(b)

			panels := c.OpenSidebar(context.Background())
			if len(panels) != tt.wantPanels {
				t.Fatalf("Expected %d panels, got %d", tt.wantPanels, len(panels))
			}
			if panels[0].Kind != tt.wantKind {
				t.Errorf("Expected kind %s, got %s", tt.wantKind, panels[0].Kind)
			}
			if k := events.kinds(); len(k) != 1 || k[0] != EventNotifications {
				t.Errorf("Expected one notifications event, got %v", k)
			}
		})
	}
}

func TestOpenSidebarReplacesContent(t *testing.T) {
	b := &fakeBridge{notifications: json.RawMessage(`[{"username":"a","message":"x"},{"username":"b","message":"y"}]`)}
	c, _ := newTestController(b)

	c.OpenSidebar(context.Background())
	b.notifications = json.RawMessage(`[]`)
	c.OpenSidebar(context.Background())

	page := c.Snapshot()
	if len(page.Notifications) != 1 || page.Notifications[0].Kind != PanelEmpty {
		t.Errorf("Expected sidebar cleared to the empty placeholder, got %+v", page.Notifications)
	}
}

func TestOpenSidebarErrorAfterSuccess(t *testing.T) {
	b := &fakeBridge{notifications: json.RawMessage(`[{"username":"a","message":"x"},{"username":"b","message":"y"}]`)}
	c, _ := newTestController(b)

	if panels := c.OpenSidebar(context.Background()); len(panels) != 2 {
		t.Fatalf("Expected 2 panels before the failure, got %d", len(panels))
	}
	b.notifyErr = errors.New("backend down")
	c.OpenSidebar(context.Background())

	page := c.Snapshot()
	if len(page.Notifications) != 1 {
		t.Fatalf("Expected exactly one panel after the failure, got %+v", page.Notifications)
	}
	if page.Notifications[0].Kind != PanelError {
		t.Errorf("Expected error placeholder, got %+v", page.Notifications[0])
	}
}

func TestTogglePanel(t *testing.T) {
	b := &fakeBridge{notifications: json.RawMessage(`[{"username":"a","message":"x"}]`)}
	c, _ := newTestController(b)
	panels := c.OpenSidebar(context.Background())

	p, ok := c.TogglePanel(panels[0].ID)
	if !ok || !p.BodyVisible || !p.Open {
		t.Errorf("Expected toggled panel visible and open, got %+v (ok=%v)", p, ok)
	}
	p, _ = c.TogglePanel(panels[0].ID)
	if p.BodyVisible || p.Open {
		t.Errorf("Expected second toggle to collapse, got %+v", p)
	}
	if _, ok := c.TogglePanel("missing"); ok {
		t.Error("Expected unknown panel id to report false")
	}
}

func kindStrings(kinds []EventKind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
