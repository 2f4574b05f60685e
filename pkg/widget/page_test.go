package widget

import "testing"

func TestStartChatIdempotent(t *testing.T) {
	v := StartChat(ViewState{})
	if !v.Started {
		t.Fatal("Expected started after StartChat")
	}
	if StartChat(v) != v {
		t.Error("Expected StartChat on started state to be a no-op")
	}
}

func TestButtonsForInput(t *testing.T) {
	tests := []struct {
		in   string
		want Buttons
	}{
		{"", Buttons{MicVisible: true}},
		{"a", Buttons{SendVisible: true}},
		{" ", Buttons{SendVisible: true}},
	}
	for _, tt := range tests {
		if got := ButtonsForInput(tt.in); got != tt.want {
			t.Errorf("ButtonsForInput(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
	if got := AwaitingButtons(); got.MicVisible || got.SendVisible {
		t.Errorf("Expected both buttons hidden while awaiting, got %+v", got)
	}
}

func TestToggle(t *testing.T) {
	p := Panel{Kind: PanelNotification}

	p = Toggle(p)
	if !p.BodyVisible || !p.Open {
		t.Errorf("Expected visible and open after first toggle, got %+v", p)
	}
	p = Toggle(p)
	if p.BodyVisible || p.Open {
		t.Errorf("Expected hidden and closed after second toggle, got %+v", p)
	}

	// Revealed video cards are visible but not open; one click hides them.
	v := Reveal(Panel{Kind: PanelVideo})
	if !v.BodyVisible || v.Open {
		t.Fatalf("Expected revealed card visible and closed, got %+v", v)
	}
	v = Toggle(v)
	if v.BodyVisible || v.Open {
		t.Errorf("Expected first toggle to hide a revealed card, got %+v", v)
	}

	ph := Panel{Kind: PanelEmpty, Body: "No notifications yet"}
	if Toggle(ph) != ph {
		t.Error("Expected placeholder to ignore toggle")
	}
}

func TestPagePanelIDsUnique(t *testing.T) {
	page := NewPage()
	seen := map[string]bool{}

	for i := 0; i < 3; i++ {
		m := page.AppendPanel(Panel{Kind: PanelVideo})
		if seen[m.Panel.ID] {
			t.Errorf("Duplicate panel id %s", m.Panel.ID)
		}
		seen[m.Panel.ID] = true
	}
	for _, p := range page.ReplaceNotifications(NotificationPanels([]NotificationItem{{"a", "x"}, {"b", "y"}}, nil)) {
		if seen[p.ID] {
			t.Errorf("Duplicate panel id %s", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestPageCloneIsDeep(t *testing.T) {
	page := NewPage()
	m := page.AppendPanel(Panel{Kind: PanelVideo})
	clone := page.Clone()

	page.TogglePanel(m.Panel.ID)
	if clone.Transcript[0].Panel.BodyVisible {
		t.Error("Expected clone to be unaffected by later toggles")
	}
}
