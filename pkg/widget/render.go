package widget

import (
	"bytes"
	"fmt"
	"html/template"
)

const fragmentTemplates = `
{{define "panel"}}{{if .Placeholder}}<div class="notif-box {{.PlaceholderClass}}" id="{{.ID}}">{{.Body}}</div>{{else}}<div class="{{.Class}}-box mb-3 p-2 border rounded" id="{{.ID}}" data-open="{{.Open}}"><div class="{{.HeaderClass}}" data-toggle="{{.ID}}" style="cursor: pointer;">{{.Header}}</div><div class="{{.BodyClass}}" {{if .BodyVisible}}style="display: block;"{{else}}style="display: none;"{{end}}>{{.Body}}</div></div>{{end}}{{end}}
{{define "message"}}<div class="message {{.Role}}" id="{{.ID}}" {{if .User}}style="align-self: flex-end;"{{else}}style="align-self: flex-start;"{{end}}><div class="message-icon {{.Role}}"><i class="bi {{if .User}}bi-person{{else}}bi-robot{{end}}"></i></div><div class="message-content">{{if .Panel}}{{template "panel" .Panel}}{{else if .User}}{{.Text}}{{else}}{{.Markup}}{{end}}</div></div>{{end}}
{{define "notifications"}}{{range .}}{{template "panel" .}}{{end}}{{end}}
{{define "video-body"}}{{.Description}}<div class="mt-2"><iframe width="300" height="200" src="{{.EmbedURL}}" frameborder="0" allowfullscreen></iframe></div>{{end}}
`

var fragments = template.Must(template.New("fragments").Parse(fragmentTemplates))

type panelView struct {
	ID               string
	Class            string
	HeaderClass      string
	BodyClass        string
	PlaceholderClass string
	Placeholder      bool
	Header           template.HTML
	Body             template.HTML
	BodyVisible      bool
	Open             bool
}

type messageView struct {
	ID     string
	Role   Role
	User   bool
	Text   string
	Markup template.HTML
	Panel  *panelView
}

func newPanelView(p Panel) *panelView {
	v := &panelView{
		ID:          p.ID,
		Placeholder: p.Placeholder(),
		Header:      template.HTML(p.Header),
		Body:        template.HTML(p.Body),
		BodyVisible: p.BodyVisible,
		Open:        p.Open,
	}
	switch p.Kind {
	case PanelVideo:
		v.Class, v.HeaderClass, v.BodyClass = "video", "video-title", "video-desc"
	case PanelNotification:
		v.Class, v.HeaderClass, v.BodyClass = "notif", "notif-username", "notif-message"
	case PanelEmpty:
		v.PlaceholderClass = "empty-message"
	case PanelError:
		v.PlaceholderClass = "text-danger"
	}
	return v
}

// RenderMessage renders one transcript bubble. User text is escaped,
// assistant markup and panel content are emitted as-is.
func RenderMessage(m Message) (string, error) {
	v := messageView{
		ID:   m.ID,
		Role: m.Role,
		User: m.Role == RoleUser,
	}
	switch {
	case m.Panel != nil:
		v.Panel = newPanelView(*m.Panel)
	case v.User:
		v.Text = m.Content
	default:
		v.Markup = template.HTML(m.Content)
	}
	return execute("message", v)
}

// RenderPanel renders a single panel, used to replace it in place after a toggle.
func RenderPanel(p Panel) (string, error) {
	return execute("panel", newPanelView(p))
}

// RenderNotifications renders the full content of the sidebar container.
func RenderNotifications(panels []Panel) (string, error) {
	views := make([]*panelView, 0, len(panels))
	for _, p := range panels {
		views = append(views, newPanelView(p))
	}
	return execute("notifications", views)
}

// RenderTranscript renders every bubble in order.
func RenderTranscript(messages []Message) (string, error) {
	var buf bytes.Buffer
	for _, m := range messages {
		out, err := RenderMessage(m)
		if err != nil {
			return "", err
		}
		buf.WriteString(out)
	}
	return buf.String(), nil
}

func renderVideoBody(v VideoResult) (string, error) {
	return execute("video-body", struct {
		Description template.HTML
		EmbedURL    string
	}{template.HTML(v.Description), v.EmbedURL})
}

func execute(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}
