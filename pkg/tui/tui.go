// Package tui is a terminal front for a chat controller. It renders the same
// page model the web front uses, as plain text.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/shawkym/chatpane/pkg/widget"
)

const sidebarWidth = 36

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Background(lipgloss.Color("63")).
			Padding(0, 1)

	welcomeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Padding(2, 4)

	userStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	assistantStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	systemStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("244"))

	messageStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("226"))

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)

// Options sets the banner text.
type Options struct {
	Title   string
	Welcome string
}

type Model struct {
	ctx     context.Context
	ctrl    *widget.Controller
	changes chan struct{}

	title   string
	welcome string

	page          widget.Page
	viewport      viewport.Model
	input         textinput.Model
	sidebarOpen   bool
	selected      int
	card          int // selected transcript card, -1 for none
	width         int
	height        int
	ready         bool
	statusMessage string
}

// pageChanged tells the model to take a fresh snapshot.
type pageChanged struct{}

type sidebarLoaded struct {
	panels int
}

// NewModel subscribes to ctrl. Events are coalesced: the model only needs
// to know that something changed, then reads the whole page.
func NewModel(ctx context.Context, ctrl *widget.Controller, opts Options) Model {
	changes := make(chan struct{}, 1)
	ctrl.Subscribe(func(widget.Event) {
		select {
		case changes <- struct{}{}:
		default:
		}
	})

	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.CharLimit = 2000
	input.Focus()

	return Model{
		ctx:     ctx,
		ctrl:    ctrl,
		changes: changes,
		title:   opts.Title,
		welcome: opts.Welcome,
		page:    ctrl.Snapshot(),
		input:   input,
		card:    -1,
	}
}

// Run drives the terminal UI until the user quits or ctx is cancelled.
func Run(ctx context.Context, ctrl *widget.Controller, opts Options) error {
	m := NewModel(ctx, ctrl, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	ctrl.Wait()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForChange())
}

func (m Model) waitForChange() tea.Cmd {
	ctx, changes := m.ctx, m.changes
	return func() tea.Msg {
		select {
		case <-changes:
			return pageChanged{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) openSidebar() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		return sidebarLoaded{panels: len(ctrl.OpenSidebar(ctx))}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			return m, tea.Quit
		case tea.KeyCtrlN:
			m.sidebarOpen = true
			m.selected = 0
			m.statusMessage = "Loading notifications..."
			m.resize()
			return m, m.openSidebar()
		}
		if m.sidebarOpen {
			return m.updateSidebar(msg), nil
		}

		switch msg.Type {
		case tea.KeyEnter:
			if m.ctrl.Send(m.ctx, m.input.Value()) {
				m.input.SetValue("")
				m.statusMessage = ""
			}
			return m, nil
		case tea.KeyTab:
			m.selectNextCard()
			return m, nil
		case tea.KeyCtrlO:
			if id, ok := m.cardTarget(); ok {
				m.ctrl.TogglePanel(id)
			}
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		m.ctrl.SetInput(m.input.Value())
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		}
		m.resize()
		m.viewport.SetContent(m.renderTranscript())

	case pageChanged:
		prev := len(m.page.Transcript)
		m.page = m.ctrl.Snapshot()
		if m.selected >= len(m.page.Notifications) {
			m.selected = max(len(m.page.Notifications)-1, 0)
		}
		if m.ready {
			m.viewport.SetContent(m.renderTranscript())
			if len(m.page.Transcript) > prev {
				m.viewport.GotoBottom()
			}
		}
		return m, m.waitForChange()

	case sidebarLoaded:
		m.statusMessage = fmt.Sprintf("%d notification panel(s)", msg.panels)
	}

	return m, nil
}

// cards lists the panels in the transcript, oldest first.
func (m Model) cards() []widget.Panel {
	var out []widget.Panel
	for _, msg := range m.page.Transcript {
		if msg.Panel != nil {
			out = append(out, *msg.Panel)
		}
	}
	return out
}

func (m *Model) selectNextCard() {
	n := len(m.cards())
	if n == 0 {
		m.statusMessage = "No cards to select"
		return
	}
	m.card = (m.card + 1) % n
	m.statusMessage = fmt.Sprintf("Card %d of %d", m.card+1, n)
	if m.ready {
		m.viewport.SetContent(m.renderTranscript())
	}
}

// cardTarget is the selected card, or the latest one when none is selected.
func (m Model) cardTarget() (string, bool) {
	cards := m.cards()
	if len(cards) == 0 {
		return "", false
	}
	i := m.card
	if i < 0 || i >= len(cards) {
		i = len(cards) - 1
	}
	return cards[i].ID, true
}

func (m Model) updateSidebar(msg tea.KeyMsg) Model {
	switch msg.Type {
	case tea.KeyEsc:
		m.sidebarOpen = false
		m.statusMessage = ""
		m.resize()
	case tea.KeyUp:
		if m.selected > 0 {
			m.selected--
		}
	case tea.KeyDown:
		if m.selected < len(m.page.Notifications)-1 {
			m.selected++
		}
	case tea.KeyEnter:
		if m.selected < len(m.page.Notifications) {
			m.ctrl.TogglePanel(m.page.Notifications[m.selected].ID)
		}
	}
	return m
}

// resize fits the viewport next to the sidebar when it is open.
func (m *Model) resize() {
	if !m.ready {
		return
	}
	w := m.width
	if m.sidebarOpen {
		w -= sidebarWidth + 2
	}
	m.viewport.Width = max(w, 10)
	m.viewport.Height = max(m.height-6, 1)
	m.input.Width = max(w-16, 10)
}

func (m Model) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	var main string
	if m.page.View.Started {
		main = m.viewport.View()
	} else {
		main = lipgloss.NewStyle().
			Width(m.viewport.Width).
			Height(m.viewport.Height).
			Render(welcomeStyle.Render(m.welcome))
	}
	if m.sidebarOpen {
		main = lipgloss.JoinHorizontal(lipgloss.Top, main, m.renderSidebar())
	}
	b.WriteString(main)
	b.WriteString("\n")

	b.WriteString(m.input.View())
	b.WriteString("  ")
	b.WriteString(statusStyle.Render(buttonHint(m.page.Buttons)))
	b.WriteString("\n")

	if m.statusMessage != "" {
		b.WriteString(statusStyle.Render(m.statusMessage))
		b.WriteString("  ")
	}
	if m.sidebarOpen {
		b.WriteString(helpStyle.Render("↑↓: Select | Enter: Expand | Esc: Close | Ctrl+C: Quit"))
	} else {
		b.WriteString(helpStyle.Render("Enter: Send | Tab: Select card | Ctrl+O: Expand card | Ctrl+N: Notifications | PgUp/PgDn: Scroll | Ctrl+C: Quit"))
	}

	return b.String()
}

func buttonHint(b widget.Buttons) string {
	switch {
	case b.SendVisible:
		return "[send ⏎]"
	case b.MicVisible:
		return "[mic]"
	default:
		return "waiting for reply..."
	}
}

func (m Model) renderTranscript() string {
	width := max(m.viewport.Width-2, 10)
	var b strings.Builder
	card := 0
	for _, msg := range m.page.Transcript {
		switch {
		case msg.Panel != nil:
			b.WriteString(renderPanel(*msg.Panel, width, card == m.card))
			card++
		case msg.Role == widget.RoleUser:
			b.WriteString(userStyle.Render("You"))
			b.WriteString("\n")
			b.WriteString(messageStyle.Width(width).Render(msg.Content))
		default:
			b.WriteString(assistantStyle.Render("Assistant"))
			b.WriteString("\n")
			b.WriteString(messageStyle.Width(width).Render(plainText(msg.Content)))
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

func (m Model) renderSidebar() string {
	width := sidebarWidth - 4
	var b strings.Builder
	b.WriteString(assistantStyle.Render("Notifications"))
	b.WriteString("\n\n")
	for i, p := range m.page.Notifications {
		if p.Placeholder() {
			b.WriteString(systemStyle.Render(plainText(p.Body)))
			b.WriteString("\n")
			continue
		}
		header := marker(p) + plainText(p.Header)
		if i == m.selected {
			header = selectedStyle.Render("> " + header)
		} else {
			header = "  " + header
		}
		b.WriteString(header)
		b.WriteString("\n")
		if p.BodyVisible {
			b.WriteString(messageStyle.Width(width).Render(plainText(p.Body)))
			b.WriteString("\n")
		}
	}
	return sidebarStyle.Width(sidebarWidth).Height(max(m.viewport.Height-2, 1)).Render(b.String())
}

func renderPanel(p widget.Panel, width int, selected bool) string {
	var b strings.Builder
	if selected {
		b.WriteString(selectedStyle.Render("> " + marker(p) + plainText(p.Header)))
	} else {
		b.WriteString(assistantStyle.Render(marker(p) + plainText(p.Header)))
	}
	if p.BodyVisible {
		b.WriteString("\n")
		b.WriteString(messageStyle.Width(width).Render(plainText(p.Body)))
	}
	return b.String()
}

func marker(p widget.Panel) string {
	if p.BodyVisible {
		return "▾ "
	}
	return "▸ "
}

// plainText flattens trusted markup for the terminal. Line breaks survive,
// links keep their target and embedded videos become their URL.
func plainText(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return markup
	}
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if ok && href != s.Text() {
			s.SetText(fmt.Sprintf("%s (%s)", s.Text(), href))
		}
	})
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		s.SetText("[video] " + src)
	})
	return strings.TrimSpace(doc.Text())
}
