package terminal

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	models "github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/models/tetris"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/render"
	"github.com/progate-hackathon-strawberry-flavor/GITRIS-engine/internal/services/tetris"
)

type tickMsg struct{}

var kindColors = map[models.PieceKind]lipgloss.Color{
	models.KindI: lipgloss.Color("#00C8DC"),
	models.KindO: lipgloss.Color("#E6D200"),
	models.KindT: lipgloss.Color("#A03CC8"),
	models.KindS: lipgloss.Color("#3CC846"),
	models.KindZ: lipgloss.Color("#DC3232"),
	models.KindJ: lipgloss.Color("#2850DC"),
	models.KindL: lipgloss.Color("#F08C14"),
}

var (
	wellStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7878A0"))
	panelStyle = lipgloss.NewStyle().
			Padding(0, 2)
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	gameOverStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF4500"))
	emptyCell = lipgloss.NewStyle().Foreground(lipgloss.Color("#333333")).Render(" .")
)

// Model はターミナル版ドライバの bubbletea モデルです。
// tickMsg ごとに GameState を 1 ティック進めます。一時停止中はティックも操作も無視します。
type Model struct {
	settings tetris.GameSettings
	state    *tetris.GameState
	paused   bool
	interval time.Duration
	keys     KeyMap
	help     help.Model
	width    int
	height   int
}

// NewModel は設定からモデルを作ります。interval が 0 以下なら tetris.DefaultTickInterval を使います。
func NewModel(settings tetris.GameSettings, interval time.Duration) (Model, error) {
	state, err := tetris.NewGameState(settings)
	if err != nil {
		return Model{}, err
	}
	if interval <= 0 {
		interval = tetris.DefaultTickInterval
	}
	return Model{
		settings: settings,
		state:    state,
		interval: interval,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}, nil
}

func (m Model) Init() tea.Cmd {
	return tickCmd(m.interval)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		if !m.paused {
			m.state.Tick()
		}
		return m, tickCmd(m.interval)
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
			return m, nil
		case key.Matches(msg, m.keys.Restart):
			// ゲームオーバー前でもやり直せる
			if state, err := tetris.NewGameState(m.settings); err == nil {
				m.state = state
				m.paused = false
			}
			return m, nil
		}
		if m.paused {
			return m, nil
		}
		for _, a := range m.keys.actions() {
			if key.Matches(msg, a.binding) {
				tetris.ApplyPlayerInput(m.state, a.action)
				break
			}
		}
	}
	return m, nil
}

func (m Model) View() string {
	snap := m.state.Snapshot()

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		wellStyle.Render(renderBoard(render.VisibleBoard(snap))),
		panelStyle.Render(renderPanel(snap, m.state.HoldAvailable(), m.paused)),
	)
	view := lipgloss.JoinVertical(lipgloss.Left, body, m.help.View(m.keys))
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, view)
	}
	return view
}

// renderBoard は 1 マスを全角 2 文字分として盤面を文字列にします。
func renderBoard(board render.Board) string {
	var b strings.Builder
	for i, row := range board.Cells {
		for _, c := range row {
			if !c.Filled {
				b.WriteString(emptyCell)
				continue
			}
			style := lipgloss.NewStyle().Background(kindColors[c.Kind])
			if !c.Active {
				style = style.Faint(true)
			}
			b.WriteString(style.Render("  "))
		}
		if i < len(board.Cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func renderPanel(snap tetris.Snapshot, holdAvailable, paused bool) string {
	hold := render.KindLabel(snap.Held)
	if !holdAvailable {
		hold += " (used)"
	}
	lines := []string{
		labelStyle.Render("LEVEL") + fmt.Sprintf(" %d", snap.Level),
		labelStyle.Render("LINES") + fmt.Sprintf(" %d", snap.LinesCleared),
		"",
		labelStyle.Render("NEXT ") + " " + snap.Next.String(),
		labelStyle.Render("HOLD ") + " " + hold,
	}
	if n := render.HiddenActiveTiles(snap); n > 0 && !snap.IsOver {
		lines = append(lines, "", fmt.Sprintf("↑ incoming (%d)", n))
	}
	switch {
	case snap.IsOver:
		lines = append(lines, "", gameOverStyle.Render("GAME OVER"), "r: restart")
	case paused:
		lines = append(lines, "", gameOverStyle.Render("PAUSED"), "p: resume")
	}
	return strings.Join(lines, "\n")
}

func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg { return tickMsg{} })
}
