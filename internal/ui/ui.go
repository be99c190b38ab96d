package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rawwerks/monty/internal/coordinator"
	"github.com/rawwerks/monty/internal/logger"
)

// throttleFloorMHz is the clock a throttled package settles at.
const throttleFloorMHz = 399

// Model renders the coordinator's windows and drives its ticks.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	coord  *coordinator.Coordinator
	tick   time.Duration
	log    logger.Logger

	usage, freq, temp, power *chart

	keys   keyMap
	help   help.Model
	err    error
	width  int
	height int
}

func New(ctx context.Context, coord *coordinator.Coordinator, tick time.Duration) *Model {
	ctx, cancel := context.WithCancel(ctx)
	stores := coord.Stores()
	return &Model{
		ctx:    ctx,
		cancel: cancel,
		coord:  coord,
		tick:   tick,
		log:    logger.New("ui"),
		usage:  newChart(stores.Usage),
		freq:   newChart(stores.Freq),
		temp:   newChart(stores.Temp),
		power:  newChart(stores.Power),
		keys:   defaultKeys(),
		help:   help.New(),
		width:  120,
		height: 40,
	}
}

// Messages
type tickMsg struct{}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return tickMsg{} })
}

type keyMap struct {
	Help key.Binding
	Quit key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding  { return []key.Binding{k.Help, k.Quit} }
func (k keyMap) FullHelp() [][]key.Binding { return [][]key.Binding{{k.Help, k.Quit}} }

func (m *Model) Init() tea.Cmd { return tickCmd(m.tick) }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
	case tickMsg:
		if m.ctx.Err() != nil {
			return m, tea.Quit
		}
		if _, err := m.coord.Tick(m.ctx); err != nil {
			m.log.Warn().Err(err).Msg("sample skipped")
			m.err = err
		} else {
			m.err = nil
		}
		return m, tickCmd(m.tick)
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)
	alertStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	axisStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	plotStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	latest := m.coord.Latest()
	header := titleStyle.Render("System Statistics") + "  " +
		subtleStyle.Render(latest.Timestamp.Local().Format("Mon Jan 2 15:04:05 MST 2006"))

	// border (2) + padding (2) + margin (1) per card, two cards per row
	cardW := max(m.width/2-5, 20)
	// header, two card borders per row, two title lines, help line
	chartH := max((m.height-8)/2-1, 3)

	brand := latest.Brand
	if brand == "" {
		brand = "Generic"
	}
	freq := m.freq.store.Latest().Value
	freqTitle := labelStyle
	if freq == throttleFloorMHz {
		freqTitle = alertStyle
	}

	usageCard := card(labelStyle.Render(truncate("CPU 0: "+brand, cardW)), m.usage.render(cardW, chartH))
	freqCard := card(freqTitle.Render(fmt.Sprintf("Frequency: %d MHz", freq)), m.freq.render(cardW, chartH))
	tempCard := card(labelStyle.Render(fmt.Sprintf("Temperature: %d °C", m.temp.store.Latest().Value)), m.temp.render(cardW, chartH))
	powerCard := card(labelStyle.Render(fmt.Sprintf("Power Draw: %d W", m.power.store.Latest().Value)), m.power.render(cardW, chartH))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, usageCard, freqCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, tempCard, powerCard)

	footer := m.help.View(m.keys)
	if m.err != nil {
		footer = alertStyle.Render(truncate(m.err.Error(), m.width)) + "  " + footer
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, footer)
}

// Helpers
func card(title, body string) string {
	return cardStyle.Render(title + "\n" + body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// RunTUI starts the Bubble Tea program and blocks until the user quits or
// ctx is cancelled.
func RunTUI(ctx context.Context, coord *coordinator.Coordinator, tick time.Duration) error {
	m := New(ctx, coord, tick)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := prog.Run()
	m.cancel()
	if ctx.Err() != nil {
		// cancelled from outside, e.g. the register sampler failed
		return nil
	}
	return err
}
