// Package export writes a chat transcript to JSON, Markdown or HTML.
package export

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/shawkym/chatpane/pkg/widget"
)

// Format represents the export format type.
type Format string

const (
	// FormatJSON exports the transcript as JSON
	FormatJSON Format = "json"
	// FormatMarkdown exports the transcript as Markdown
	FormatMarkdown Format = "markdown"
	// FormatHTML exports the transcript as a standalone HTML page
	FormatHTML Format = "html"
)

// ParseFormat maps a query value to a Format, defaulting to JSON.
func ParseFormat(name string) (Format, error) {
	switch Format(strings.ToLower(name)) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatHTML:
		return FormatHTML, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", name)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// ExportOptions contains options for exporting transcripts.
type ExportOptions struct {
	// Format specifies the export format (json, markdown, html)
	Format Format
	// IncludeSummary adds message counts to the export
	IncludeSummary bool
	// Title is an optional title for the exported transcript
	Title string
}

// Exporter handles transcript exports to different formats.
type Exporter struct {
	options   ExportOptions
	converter *md.Converter
	now       func() time.Time
}

// NewExporter creates a new Exporter with the given options.
func NewExporter(options ExportOptions) *Exporter {
	return &Exporter{
		options:   options,
		converter: md.NewConverter("", true, nil),
		now:       time.Now,
	}
}

// Export writes messages to writer in the configured format.
func (e *Exporter) Export(messages []widget.Message, writer io.Writer) error {
	switch e.options.Format {
	case FormatJSON:
		return e.exportJSON(messages, writer)
	case FormatMarkdown:
		return e.exportMarkdown(messages, writer)
	case FormatHTML:
		return e.exportHTML(messages, writer)
	default:
		return fmt.Errorf("unsupported export format: %s", e.options.Format)
	}
}

type exportedMessage struct {
	ID       string        `json:"id"`
	Role     widget.Role   `json:"role"`
	Content  string        `json:"content,omitempty"`
	Video    *exportedCard `json:"video,omitempty"`
	Markdown string        `json:"markdown,omitempty"`
}

type exportedCard struct {
	Title    string `json:"title"`
	Body     string `json:"body"`
	EmbedURL string `json:"embed_url,omitempty"`
}

func (e *Exporter) exportJSON(messages []widget.Message, writer io.Writer) error {
	out := make([]exportedMessage, 0, len(messages))
	for _, msg := range messages {
		em := exportedMessage{ID: msg.ID, Role: msg.Role, Content: msg.Content}
		switch {
		case msg.Panel != nil:
			card, err := e.card(*msg.Panel)
			if err != nil {
				return err
			}
			em.Video = card
		case msg.Role == widget.RoleAssistant:
			text, err := e.converter.ConvertString(msg.Content)
			if err != nil {
				return fmt.Errorf("failed to convert message %s: %w", msg.ID, err)
			}
			em.Markdown = text
		}
		out = append(out, em)
	}

	output := struct {
		Title      string            `json:"title,omitempty"`
		ExportedAt string            `json:"exported_at"`
		Messages   []exportedMessage `json:"messages"`
		Summary    *ExportSummary    `json:"summary,omitempty"`
	}{
		Title:      e.options.Title,
		ExportedAt: e.now().Format(time.RFC3339),
		Messages:   out,
	}
	if e.options.IncludeSummary {
		output.Summary = calculateSummary(messages)
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

func (e *Exporter) exportMarkdown(messages []widget.Message, writer io.Writer) error {
	var sb strings.Builder

	if e.options.Title != "" {
		sb.WriteString("# ")
		sb.WriteString(e.options.Title)
		sb.WriteString("\n\n")
	}
	sb.WriteString("*Exported: ")
	sb.WriteString(e.now().Format("2006-01-02 15:04:05"))
	sb.WriteString("*\n\n")

	if e.options.IncludeSummary {
		summary := calculateSummary(messages)
		sb.WriteString("## Summary\n\n")
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", summary.TotalMessages))
		sb.WriteString(fmt.Sprintf("- **From you**: %d\n", summary.UserMessages))
		sb.WriteString(fmt.Sprintf("- **Videos**: %d\n", summary.VideoCards))
		sb.WriteString("\n---\n\n")
	}

	for _, msg := range messages {
		switch {
		case msg.Role == widget.RoleUser:
			sb.WriteString("### You\n\n")
			sb.WriteString(msg.Content)
		case msg.Panel != nil:
			card, err := e.card(*msg.Panel)
			if err != nil {
				return err
			}
			sb.WriteString("### Video: ")
			sb.WriteString(card.Title)
			sb.WriteString("\n\n")
			sb.WriteString(card.Body)
			if card.EmbedURL != "" {
				sb.WriteString("\n\n")
				sb.WriteString(card.EmbedURL)
			}
		default:
			text, err := e.converter.ConvertString(msg.Content)
			if err != nil {
				return fmt.Errorf("failed to convert message %s: %w", msg.ID, err)
			}
			sb.WriteString("### Assistant\n\n")
			sb.WriteString(text)
		}
		sb.WriteString("\n\n---\n\n")
	}

	_, err := io.WriteString(writer, sb.String())
	return err
}

func (e *Exporter) exportHTML(messages []widget.Message, writer io.Writer) error {
	transcript, err := widget.RenderTranscript(messages)
	if err != nil {
		return err
	}

	title := e.options.Title
	if title == "" {
		title = "Chat transcript"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString(fmt.Sprintf("  <title>%s</title>\n", html.EscapeString(title)))
	sb.WriteString("  <style>\n")
	sb.WriteString(exportCSS)
	sb.WriteString("  </style>\n")
	sb.WriteString("</head>\n")
	sb.WriteString("<body>\n")
	sb.WriteString("  <div class=\"container\">\n")
	sb.WriteString(fmt.Sprintf("    <h1>%s</h1>\n", html.EscapeString(title)))
	sb.WriteString(fmt.Sprintf("    <p class=\"export-date\">Exported: %s</p>\n", e.now().Format("2006-01-02 15:04:05")))
	sb.WriteString("    <div class=\"chat-messages\">\n")
	sb.WriteString(transcript)
	sb.WriteString("\n    </div>\n")
	sb.WriteString("  </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	_, err = io.WriteString(writer, sb.String())
	return err
}

// card flattens a video panel to text, pulling the embed URL out of its iframe.
func (e *Exporter) card(p widget.Panel) (*exportedCard, error) {
	title, err := e.converter.ConvertString(p.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to convert card %s: %w", p.ID, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse card %s: %w", p.ID, err)
	}
	src, _ := doc.Find("iframe").Attr("src")
	doc.Find("iframe").Remove()

	bodyHTML, err := doc.Find("body").Html()
	if err != nil {
		return nil, fmt.Errorf("failed to parse card %s: %w", p.ID, err)
	}
	body, err := e.converter.ConvertString(bodyHTML)
	if err != nil {
		return nil, fmt.Errorf("failed to convert card %s: %w", p.ID, err)
	}

	return &exportedCard{
		Title:    strings.TrimSpace(title),
		Body:     strings.TrimSpace(body),
		EmbedURL: src,
	}, nil
}

// ExportSummary contains counts for an exported transcript.
type ExportSummary struct {
	TotalMessages     int `json:"total_messages"`
	UserMessages      int `json:"user_messages"`
	AssistantMessages int `json:"assistant_messages"`
	VideoCards        int `json:"video_cards"`
}

func calculateSummary(messages []widget.Message) *ExportSummary {
	summary := &ExportSummary{}
	for _, msg := range messages {
		summary.TotalMessages++
		switch {
		case msg.Role == widget.RoleUser:
			summary.UserMessages++
		case msg.Panel != nil:
			summary.VideoCards++
		default:
			summary.AssistantMessages++
		}
	}
	return summary
}

const exportCSS = `    body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background-color: #f5f5f5; margin: 0; }
    .container { max-width: 900px; margin: 0 auto; padding: 20px; background-color: white; }
    .export-date { color: #7f8c8d; font-style: italic; }
    .chat-messages { display: flex; flex-direction: column; gap: 12px; }
    .message { display: flex; gap: 8px; max-width: 80%; padding: 10px 14px; border-radius: 12px; }
    .message.user { background-color: #d1e7ff; }
    .message.assistant { background-color: #f1f1f1; }
    .video-title, .notif-username { font-weight: bold; }
    .video-desc { display: block !important; }
    code { background-color: #e8e8e8; padding: 2px 6px; border-radius: 3px; }
`
