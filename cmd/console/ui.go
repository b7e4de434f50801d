package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/jwebster45206/wired-engine/pkg/clock"
	"github.com/jwebster45206/wired-engine/pkg/ecc"
	"github.com/jwebster45206/wired-engine/pkg/state"
	"github.com/muesli/reflow/wordwrap"
)

const PlaceHolderText = "Choose a number, or type a command..."

// ConsoleUI is the BubbleTea model that runs the shell.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	game         *game
	ctx          context.Context
	storyLog     []string
	storyView    viewport.Model
	metaViewport viewport.Model
	textarea     textarea.Model
	ready        bool
	width        int
	height       int

	// Quit confirmation state
	showQuitModal bool
}

// clockTickMsg is sent after the background ticker advances the clock.
type clockTickMsg struct {
	status ecc.Status
}

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	glitchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)
)

var separatorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")) // dark grey

func NewConsoleUI(ctx context.Context, g *game) ConsoleUI {
	ta := textarea.New()
	ta.Placeholder = PlaceHolderText
	ta.Focus()
	ta.Prompt = promptStyle.Render(":: ")
	ta.CharLimit = 200
	ta.SetWidth(50)
	ta.SetHeight(1)
	ta.ShowLineNumbers = false

	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		game:         g,
		ctx:          ctx,
		storyLog:     []string{g.describeScene()},
		textarea:     ta,
		storyView:    storyVp,
		metaViewport: metaVp,
	}
}

func writeMetadata(s *state.Session) string {
	var content strings.Builder
	content.WriteString(titleStyle.Render("WORLD STATE") + "\n\n")

	content.WriteString("World ID:\n")
	content.WriteString(s.World.ID.String()[:8] + "...\n\n")

	res := s.DecodeClock()
	content.WriteString("Time:\n")
	if res.Status == ecc.DoubleBitDetected {
		content.WriteString(glitchStyle.Render("??:??") + "\n\n")
	} else {
		content.WriteString(fmt.Sprintf("Day %d %s\n\n", clock.Day(res.Data), clock.Format(res.Data)))
	}

	content.WriteString("Location:\n")
	if loc, err := s.CurrentLocation(); err == nil {
		content.WriteString(loc.Name + "\n\n")
	} else {
		content.WriteString(s.World.Player.Location + "\n\n")
	}

	content.WriteString(fmt.Sprintf("Credit level: %d\n\n", s.World.Player.CreditLevel))

	var here []string
	for _, id := range s.NPCsAt(s.World.Player.Location) {
		if def, ok := s.Catalog().NPC(id); ok && def.Name != "" {
			id = def.Name
		}
		here = append(here, id)
	}
	if len(here) > 0 {
		content.WriteString("Present:\n")
		for _, name := range here {
			content.WriteString("• " + name + "\n")
		}
		content.WriteString("\n")
	}

	flags := s.World.Flags.Snapshot()
	if len(flags) > 0 {
		names := make([]string, 0, len(flags))
		for k := range flags {
			names = append(names, k)
		}
		slices.Sort(names)
		content.WriteString("Flags:\n")
		for _, k := range names {
			content.WriteString(fmt.Sprintf("• %s: %s\n", k, flags[k]))
		}
	} else {
		content.WriteString("Flags:\nNone set\n")
	}

	content.WriteString("\n")
	content.WriteString("Keys:\n")
	content.WriteString("• Ctrl+C: Quit\n")
	content.WriteString("• Enter: Send\n")
	content.WriteString("• shell: Shell help\n")

	return content.String()
}

// writeStoryContent rebuilds the story log for the current viewport width.
func (m *ConsoleUI) writeStoryContent() {
	width := m.storyView.Width - 6 // Account for left(3) + right(3) padding
	if width < 10 {
		width = 10
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("WIRED ENGINE") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	for _, entry := range m.storyLog {
		content.WriteString(formatEntry(entry, width) + "\n\n")
	}

	m.storyView.SetContent(content.String())
	m.storyView.GotoBottom()
}

// formatEntry wraps an entry and colours numbered choices and echoed input.
func formatEntry(entry string, width int) string {
	wrapped := wordwrap.String(entry, width)
	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "> "):
			lines[i] = userStyle.Render(line)
		case len(line) > 2 && line[0] >= '1' && line[0] <= '9' && line[1] == '.':
			lines[i] = choiceStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m ConsoleUI) Init() tea.Cmd {
	return textarea.Blink
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		mvCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyView, vpCmd = m.storyView.Update(msg)
		m.metaViewport, mvCmd = m.metaViewport.Update(msg)
		return m, tea.Batch(vpCmd, mvCmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		storyWidth := int(float64(m.width)*0.72) - 4
		metaWidth := m.width - storyWidth - 6

		m.storyView.Width = storyWidth - 2
		m.storyView.Height = m.height - 5
		m.metaViewport.Width = metaWidth - 2
		m.metaViewport.Height = m.height - 4
		m.textarea.SetWidth(storyWidth - 4)

		m.ready = true
		m.writeStoryContent()
		m.metaViewport.SetContent(writeMetadata(m.game.session))

	case clockTickMsg:
		m.game.session.RefreshNPCs()
		m.metaViewport.SetContent(writeMetadata(m.game.session))
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showQuitModal = true
			return m, nil
		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}

			t := m.game.handle(m.ctx, input)
			if t.Quit {
				m.showQuitModal = true
				return m, nil
			}
			m.storyLog = append(m.storyLog, "> "+input)
			if t.Output != "" {
				m.storyLog = append(m.storyLog, t.Output)
			}
			m.writeStoryContent()
			m.metaViewport.SetContent(writeMetadata(m.game.session))
			return m, nil
		}
	}

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.storyView, vpCmd = m.storyView.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd, mvCmd)
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				m.textarea.Focus()
				return m, textarea.Blink
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit?"))
	content.WriteString("\n\n")
	content.WriteString("Unsaved progress will be lost. Type 'save' first to keep it.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue, or Ctrl+C to force quit"))

	modal := modalStyle.Width(50).Render(content.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			m.storyView.View(),
			"",
			separatorStyle.Render(strings.Repeat("─", storyWidth-4)),
			m.textarea.View(),
		),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}

// tickForwarder returns a clock.TickFunc that forwards ticks to the program.
// Send blocks until the program reads the message, so the ticker never runs
// ahead of the UI.
func tickForwarder(p *tea.Program) clock.TickFunc {
	return func(_ uint32, status ecc.Status) {
		p.Send(clockTickMsg{status: status})
	}
}
