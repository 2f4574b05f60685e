package widget

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeNotifications(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []NotificationItem
		wantErr bool
	}{
		{
			name: "array",
			raw:  `[{"username":"a","message":"x"},{"username":"b","message":"y"}]`,
			want: []NotificationItem{{"a", "x"}, {"b", "y"}},
		},
		{
			name: "single object",
			raw:  `{"username":"a","message":"x"}`,
			want: []NotificationItem{{"a", "x"}},
		},
		{
			name: "empty array",
			raw:  `[]`,
			want: []NotificationItem{},
		},
		{name: "null", raw: `null`},
		{name: "number", raw: `42`},
		{name: "string", raw: `"hi"`},
		{
			name: "lenient fields",
			raw:  `[{"username":1,"message":null}, 3]`,
			want: []NotificationItem{{Username: "1"}, {}},
		},
		{name: "malformed", raw: `[{"username":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeNotifications(json.RawMessage(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %s, got %#v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestNotificationPanels(t *testing.T) {
	panels := NotificationPanels([]NotificationItem{{"alice", "hi"}, {"bob", "yo"}}, Trusted{})
	if len(panels) != 2 {
		t.Fatalf("Expected 2 panels, got %d", len(panels))
	}
	if panels[0].Header != "@alice" || panels[0].Body != "hi" {
		t.Errorf("Expected @alice/hi, got %q/%q", panels[0].Header, panels[0].Body)
	}
	if panels[1].BodyVisible || panels[1].Open {
		t.Error("Expected notification panels to start collapsed")
	}

	empty := NotificationPanels(nil, Trusted{})
	if len(empty) != 1 || empty[0].Kind != PanelEmpty || empty[0].Body != "No notifications yet" {
		t.Errorf("Expected single empty placeholder, got %#v", empty)
	}

	failed := ErrorPanels()
	if len(failed) != 1 || failed[0].Kind != PanelError || failed[0].Body != "Error loading notifications" {
		t.Errorf("Expected single error placeholder, got %#v", failed)
	}
}
