package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/yesan/internal/anomaly"
	"github.com/Veraticus/yesan/internal/chat"
	"github.com/Veraticus/yesan/internal/dashboard"
	"github.com/Veraticus/yesan/internal/tui/components"
	"github.com/Veraticus/yesan/internal/tui/themes"
	"github.com/Veraticus/yesan/internal/voucher"
)

// ErrNoBackend is returned when the TUI is built without a backend.
var ErrNoBackend = errors.New("backend is required")

// Screen is one of the routed screens.
type Screen int

const (
	ScreenHome Screen = iota
	ScreenBudget
	ScreenVoucher
	ScreenAnomaly
)

// Screens lists the screens in navigation order.
var Screens = []Screen{ScreenHome, ScreenBudget, ScreenVoucher, ScreenAnomaly}

// Path returns the path a screen is mounted at.
func (s Screen) Path() string {
	switch s {
	case ScreenBudget:
		return "/budget"
	case ScreenVoucher:
		return "/voucher"
	case ScreenAnomaly:
		return "/anomaly"
	}
	return "/"
}

// Title returns the navigation label of a screen.
func (s Screen) Title() string {
	switch s {
	case ScreenBudget:
		return "📊 예산 대시보드"
	case ScreenVoucher:
		return "📝 전표 작성"
	case ScreenAnomaly:
		return "🔍 이상탐지"
	}
	return "🏠 홈"
}

// Route maps a path to its screen. Unknown paths land on the home screen.
func Route(path string) Screen {
	for _, s := range Screens {
		if s.Path() == path {
			return s
		}
	}
	return ScreenHome
}

// chatWidth is the width of the slide-over panel.
const chatWidth = 46

// Model is the router: it owns every screen and the chat panel.
type Model struct {
	theme     themes.Theme
	config    Config
	keymap    KeyMap
	form      *voucher.Form
	help      help.Model
	status    string
	home      components.HomeModel
	dashboard components.DashboardModel
	voucher   components.VoucherFormModel
	anomalies components.AnomalyListModel
	chat      components.ChatPanelModel
	screen    Screen
	statusSeq int
	width     int
	height    int
	statusErr bool
	chatOpen  bool
	showHelp  bool
	quitting  bool
}

// New builds the router with every screen wired to the backend.
func New(ctx context.Context, opts ...Option) (Model, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Backend == nil {
		return Model{}, ErrNoBackend
	}

	formOpts := append([]voucher.Option{voucher.WithLogger(cfg.Logger)}, cfg.VoucherOptions...)
	form, err := voucher.NewForm(ctx, formOpts...)
	if err != nil {
		return Model{}, fmt.Errorf("failed to create voucher form: %w", err)
	}

	dashOpts := append([]dashboard.Option{dashboard.WithLogger(cfg.Logger)}, cfg.DashboardOptions...)

	m := Model{
		theme:     cfg.Theme,
		config:    cfg,
		keymap:    DefaultKeyMap(),
		help:      help.New(),
		form:      form,
		home:      components.NewHomeModel(cfg.Theme),
		dashboard: components.NewDashboardModel(dashboard.New(cfg.Backend, dashOpts...), cfg.ReportDir, cfg.Theme),
		voucher:   components.NewVoucherFormModel(form, cfg.Theme),
		anomalies: components.NewAnomalyListModel(anomaly.NewReview(cfg.Backend, cfg.Logger), cfg.Theme),
		screen:    Route(cfg.InitialPath),
		width:     cfg.Width,
		height:    cfg.Height,
	}
	m.handleResize()
	return m, nil
}

// Close stops the voucher form's pending validations.
func (m Model) Close() {
	m.form.Close()
}

// Screen returns the active screen.
func (m Model) Screen() Screen {
	return m.screen
}

// ChatOpen reports whether the chat panel is showing.
func (m Model) ChatOpen() bool {
	return m.chatOpen
}

// Status returns the current status bar notice.
func (m Model) Status() string {
	return m.status
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("yesan"),
		m.voucher.Init(),
		m.mount(m.screen),
	)
}

// mount fetches fresh data every time a screen is shown. Cached data
// stays visible while the fetch runs.
func (m Model) mount(s Screen) tea.Cmd {
	switch s {
	case ScreenBudget:
		return m.dashboard.Init()
	case ScreenAnomaly:
		return m.anomalies.Init()
	}
	return nil
}

func (m Model) navigate(s Screen) (Model, tea.Cmd) {
	if s == m.screen {
		return m, nil
	}
	m.screen = s
	return m, m.mount(s)
}

func (m Model) openChat() (Model, tea.Cmd) {
	m.chat = components.NewChatPanelModel(chat.NewSession(m.config.Backend, m.config.Logger), m.theme)
	m.chatOpen = true
	m.handleResize()
	return m, m.chat.Init()
}

func (m Model) closeChat() Model {
	m.chatOpen = false
	m.handleResize()
	return m
}

// capturing reports whether the active screen has a focused text field.
func (m Model) capturing() bool {
	switch m.screen {
	case ScreenBudget:
		return m.dashboard.Capturing()
	case ScreenVoucher:
		return m.voucher.Capturing()
	case ScreenAnomaly:
		return m.anomalies.Capturing()
	}
	return false
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.handleResize()
		return m, nil

	case components.NavigateMsg:
		return m.navigate(Route(msg.Path))

	case components.OpenChatMsg:
		if m.chatOpen {
			return m, nil
		}
		return m.openChat()

	case components.CloseChatMsg:
		return m.closeChat(), nil

	case components.StatusMsg:
		m.statusSeq++
		m.status = msg.Text
		m.statusErr = msg.Err
		return m, clearStatusAfter(m.statusSeq)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.status = ""
		}
		return m, nil
	}

	// Results and ticks are typed per screen, so every screen sees them
	// and ignores what is not its own.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.dashboard, cmd = m.dashboard.Update(msg)
	cmds = append(cmds, cmd)
	m.voucher, cmd = m.voucher.Update(msg)
	cmds = append(cmds, cmd)
	m.anomalies, cmd = m.anomalies.Update(msg)
	cmds = append(cmds, cmd)
	if m.chatOpen {
		m.chat, cmd = m.chat.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleKey applies global keys first, then hands the key to the chat
// panel when open or to the active screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ForceQuit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, m.keymap.ToggleChat):
		if m.chatOpen {
			return m.closeChat(), nil
		}
		return m.openChat()
	case key.Matches(msg, m.keymap.ClearScreen):
		return m, tea.ClearScreen
	}

	if m.chatOpen {
		var cmd tea.Cmd
		m.chat, cmd = m.chat.Update(msg)
		return m, cmd
	}

	if !m.capturing() {
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keymap.Home):
			return m.navigate(ScreenHome)
		case key.Matches(msg, m.keymap.Budget):
			return m.navigate(ScreenBudget)
		case key.Matches(msg, m.keymap.Voucher):
			return m.navigate(ScreenVoucher)
		case key.Matches(msg, m.keymap.Anomaly):
			return m.navigate(ScreenAnomaly)
		case key.Matches(msg, m.keymap.Next):
			return m.navigate(Screens[(int(m.screen)+1)%len(Screens)])
		case key.Matches(msg, m.keymap.Prev):
			return m.navigate(Screens[(int(m.screen)+len(Screens)-1)%len(Screens)])
		}
	}

	var cmd tea.Cmd
	switch m.screen {
	case ScreenHome:
		m.home, cmd = m.home.Update(msg)
	case ScreenBudget:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ScreenVoucher:
		m.voucher, cmd = m.voucher.Update(msg)
	case ScreenAnomaly:
		m.anomalies, cmd = m.anomalies.Update(msg)
	}
	return m, cmd
}

// handleResize adjusts component sizes when the terminal or the chat
// panel changes.
func (m *Model) handleResize() {
	width := m.width - 2
	if m.chatOpen {
		width -= chatWidth
		m.chat.Resize(chatWidth, m.height-3)
	}
	height := m.height - 4

	m.help.Width = m.width
	m.home.Resize(width, height)
	m.dashboard.Resize(width, height)
	m.voucher.Resize(width, height)
	m.anomalies.Resize(width, height)
}
