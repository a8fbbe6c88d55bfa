// Package display provides the terminal UI using Bubble Tea.
//
// The [UI] renders the orchestrator's state: the mode indicator, the
// location and photo status lines, the menu form, the result card, the
// loading spinner and a modal alert. Key presses are turned into engine
// actions, which always run inside a tea.Cmd so that state observers can
// Send back into the program without blocking the event loop.
package display

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/hammamikhairi/concierge/internal/audio"
	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/engine"
	"github.com/hammamikhairi/concierge/internal/i18n"
)

// Compile-time interface check.
var _ domain.Alerter = (*UI)(nil)

// ── Styles ───────────────────────────────────────────────────────

var (
	barBg = lipgloss.NewStyle().
		Background(lipgloss.Color("#27272a")).
		Foreground(lipgloss.Color("#a1a1aa"))

	modeActiveStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fde68a")).
			Bold(true)

	modeIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#a1a1aa"))

	sepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#52525b"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	// BannerStyle is the muted slate of the startup banner.
	BannerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#94a3b8"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbf7d0")).
			Bold(true)

	primaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#d4d4d8"))

	secondaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#71717a"))

	chatStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bae6fd"))

	urgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#fca5a5"))

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#52525b")).
			Padding(0, 1)

	alertStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#fca5a5")).
			Padding(0, 1)
)

// ── Ports ────────────────────────────────────────────────────────

// Actions is the orchestrator surface the UI drives.
type Actions interface {
	Snapshot() engine.State
	SetMode(domain.Mode)
	SetMenuParameters(domain.MenuParameters)
	Capture(ctx context.Context) error
	AutoGuide(ctx context.Context) error
	SubmitMenu(ctx context.Context) error
	Retake()
	DismissResult()
	ReplayLast(ctx context.Context) error
	StopAudio()
}

// Translator resolves user-facing strings.
type Translator interface {
	T(id string) string
	Tf(id string, data map[string]any) string
}

// Listener records one utterance and returns its text.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// ── Messages ─────────────────────────────────────────────────────

type (
	stateMsg    engine.State
	playingMsg  struct {
		playing bool
		text    string
	}
	locationMsg domain.LocationFix
	noticeMsg   string
	alertMsg    struct{ title, message string }
	actionMsg   struct{ err error }
	dictatedMsg struct {
		field int
		text  string
		err   error
	}
)

// ── UI ───────────────────────────────────────────────────────────

// Option configures the UI.
type Option func(*UI)

// WithDictation enables voice input for the menu form.
func WithDictation(l Listener) Option {
	return func(u *UI) { u.listener = l }
}

// UI manages the terminal through Bubble Tea.
//
// Call [NewUI] then [UI.Run] (blocking). Other goroutines may call the
// notification methods at any time after [UI.WaitReady] returns.
type UI struct {
	actions  Actions
	tr       Translator
	listener Listener
	program  *tea.Program
	readyCh  chan struct{}
	done     atomic.Bool
}

// NewUI creates the display. Call Run to start.
func NewUI(actions Actions, tr Translator, opts ...Option) *UI {
	u := &UI{
		actions: actions,
		tr:      tr,
		readyCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Run starts the Bubble Tea event loop. Blocks until the user quits or
// ctx is cancelled.
func (u *UI) Run(ctx context.Context) error {
	m := newModel(ctx, u.actions, u.tr, u.listener)
	m.readyCh = u.readyCh

	u.program = tea.NewProgram(m, tea.WithContext(ctx))
	_, err := u.program.Run()
	u.done.Store(true)
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// WaitReady blocks until the Bubble Tea event loop is running.
func (u *UI) WaitReady() { <-u.readyCh }

// Quit tells Bubble Tea to exit.
func (u *UI) Quit() {
	if u.program != nil {
		u.program.Quit()
	}
}

func (u *UI) send(msg tea.Msg) {
	if u.program != nil && !u.done.Load() {
		u.program.Send(msg)
	}
}

// OnState is an engine observer.
func (u *UI) OnState(s engine.State) { u.send(stateMsg(s)) }

// SetPlaying reflects the playback manager's isPlaying flag and the text
// being narrated, if known.
func (u *UI) SetPlaying(playing bool, text string) {
	u.send(playingMsg{playing: playing, text: text})
}

// SetLocation shows a new location fix.
func (u *UI) SetLocation(fix domain.LocationFix) { u.send(locationMsg(fix)) }

// Notice shows a one-line status message until the next key press.
func (u *UI) Notice(text string) { u.send(noticeMsg(text)) }

// Alert shows a modal message. It returns once the alert is queued; the
// modal stays until the user dismisses it.
func (u *UI) Alert(ctx context.Context, title, message string) error {
	if u.program == nil || u.done.Load() {
		return errors.New("display: not running")
	}
	u.send(alertMsg{title: title, message: message})
	return nil
}

// ── Bubble Tea model ─────────────────────────────────────────────

const (
	fieldPeople = iota
	fieldBudget
	fieldTaste
	fieldCount
)

type model struct {
	ctx      context.Context
	actions  Actions
	tr       Translator
	listener Listener
	readyCh  chan struct{}

	state     engine.State
	fix       *domain.LocationFix
	playing   bool
	speaking  string
	listening bool
	notice    string
	alert     *alertMsg

	form    [fieldCount]textinput.Model
	focus   int
	editing bool

	spin  spinner.Model
	width int
}

func newModel(ctx context.Context, actions Actions, tr Translator, listener Listener) model {
	m := model{
		ctx:      ctx,
		actions:  actions,
		tr:       tr,
		listener: listener,
		state:    actions.Snapshot(),
		spin:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(chatStyle)),
		width:    80,
	}

	labels := [fieldCount]string{
		tr.T(i18n.MsgFieldPeople),
		tr.T(i18n.MsgFieldBudget),
		tr.T(i18n.MsgFieldTaste),
	}
	values := [fieldCount]string{m.state.Menu.People, m.state.Menu.Budget, m.state.Menu.Taste}
	for i := range m.form {
		ti := textinput.New()
		// Plain-text prompt keeps the textinput width math correct.
		ti.Prompt = labels[i] + ": "
		ti.PromptStyle = promptStyle
		ti.TextStyle = primaryStyle
		ti.CharLimit = 200
		ti.Cursor.SetMode(cursor.CursorStatic)
		ti.Width = 40
		ti.SetValue(values[i])
		m.form[i] = ti
	}
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, signalReady(m.readyCh))
}

func signalReady(ch chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if ch != nil {
			close(ch)
		}
		return nil
	}
}

// do runs a blocking action off the event loop.
func (m model) do(fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return actionMsg{err: fn(ctx)}
	}
}

// run runs a non-blocking action off the event loop.
func run(fn func()) tea.Cmd {
	return func() tea.Msg {
		fn()
		return nil
	}
}

func (m model) params() domain.MenuParameters {
	return domain.MenuParameters{
		People: strings.TrimSpace(m.form[fieldPeople].Value()),
		Budget: strings.TrimSpace(m.form[fieldBudget].Value()),
		Taste:  strings.TrimSpace(m.form[fieldTaste].Value()),
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.form {
			if w := msg.Width - len(m.form[i].Prompt) - 4; w > 10 {
				m.form[i].Width = w
			}
		}
		return m, nil

	case stateMsg:
		m.state = engine.State(msg)
		return m, nil

	case playingMsg:
		m.playing = msg.playing
		m.speaking = ""
		if msg.playing {
			m.speaking = msg.text
		}
		return m, nil

	case locationMsg:
		fix := domain.LocationFix(msg)
		m.fix = &fix
		return m, nil

	case noticeMsg:
		m.notice = string(msg)
		return m, nil

	case alertMsg:
		m.alert = &msg
		return m, nil

	case actionMsg:
		switch {
		case errors.Is(msg.err, domain.ErrLocationUnavailable):
			m.notice = m.tr.T(i18n.MsgNoLocation)
		case errors.Is(msg.err, domain.ErrWrongMode):
			m.notice = m.tr.T(i18n.MsgGuideExploreOnly)
		case errors.Is(msg.err, domain.ErrNotFound):
			m.notice = m.tr.T(i18n.MsgNothingToReplay)
		}
		return m, nil

	case dictatedMsg:
		m.listening = false
		if msg.err != nil {
			if errors.Is(msg.err, audio.ErrNothingHeard) {
				m.notice = m.tr.T(i18n.MsgNothingHeard)
			}
			return m, nil
		}
		m.form[msg.field].SetValue(msg.text)
		p := m.params()
		return m, run(func() { m.actions.SetMenuParameters(p) })

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.alert != nil {
			switch msg.Type {
			case tea.KeyEnter, tea.KeyEsc, tea.KeySpace:
				m.alert = nil
			}
			return m, nil
		}
		m.notice = ""
		if m.editing {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyEnter && m.state.Mode == domain.ModeMenu {
		return m.startEditing()
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "c":
		return m, m.do(m.actions.Capture)
	case "g":
		return m, m.do(m.actions.AutoGuide)
	case "m":
		next := domain.ModeMenu
		if m.state.Mode == domain.ModeMenu {
			next = domain.ModeExplore
		}
		return m, run(func() { m.actions.SetMode(next) })
	case "r":
		return m, run(m.actions.Retake)
	case "x":
		return m, run(m.actions.DismissResult)
	case "p":
		return m, m.do(m.actions.ReplayLast)
	case "s":
		return m, run(m.actions.StopAudio)
	}
	return m, nil
}

func (m model) startEditing() (tea.Model, tea.Cmd) {
	m.editing = true
	m.focus = 0
	for i := range m.form {
		m.form[i].Blur()
	}
	return m, m.form[m.focus].Focus()
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.form[m.focus].Blur()
		p := m.params()
		return m, run(func() { m.actions.SetMenuParameters(p) })

	case tea.KeyTab, tea.KeyDown, tea.KeyShiftTab, tea.KeyUp:
		m.form[m.focus].Blur()
		if msg.Type == tea.KeyTab || msg.Type == tea.KeyDown {
			m.focus = (m.focus + 1) % fieldCount
		} else {
			m.focus = (m.focus + fieldCount - 1) % fieldCount
		}
		return m, m.form[m.focus].Focus()

	case tea.KeyEnter:
		m.editing = false
		m.form[m.focus].Blur()
		p := m.params()
		actions := m.actions
		return m, m.do(func(ctx context.Context) error {
			actions.SetMenuParameters(p)
			return actions.SubmitMenu(ctx)
		})

	case tea.KeyCtrlD:
		if m.listener == nil || m.listening {
			return m, nil
		}
		m.listening = true
		field, l, ctx := m.focus, m.listener, m.ctx
		return m, func() tea.Msg {
			text, err := l.Listen(ctx)
			return dictatedMsg{field: field, text: text, err: err}
		}
	}

	var cmd tea.Cmd
	m.form[m.focus], cmd = m.form[m.focus].Update(msg)
	return m, cmd
}

// ── View ─────────────────────────────────────────────────────────

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.renderBar())
	b.WriteString("\n\n")

	if m.fix != nil {
		b.WriteString(labelStyle.Render("  " + m.tr.Tf(i18n.MsgLocation, map[string]any{
			"Lat": fmt.Sprintf("%.5f", m.fix.Latitude),
			"Lon": fmt.Sprintf("%.5f", m.fix.Longitude),
		})))
	} else {
		b.WriteString(secondaryStyle.Render("  " + m.tr.T(i18n.MsgLocating)))
	}
	b.WriteByte('\n')

	if m.state.Photo != nil {
		b.WriteString(labelStyle.Render("  " + m.tr.Tf(i18n.MsgPhoto, map[string]any{"URI": m.state.Photo.URI})))
	} else {
		b.WriteString(secondaryStyle.Render("  " + m.tr.T(i18n.MsgNoPhoto)))
	}
	b.WriteByte('\n')

	if m.state.Mode == domain.ModeMenu {
		b.WriteByte('\n')
		for i := range m.form {
			b.WriteString("  " + m.form[i].View() + "\n")
		}
	}

	if card := m.renderResult(); card != "" {
		b.WriteByte('\n')
		b.WriteString(card)
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	switch {
	case m.listening:
		b.WriteString("  " + m.spin.View() + " " + chatStyle.Render(m.tr.T(i18n.MsgListening)) + "\n")
	case m.state.Loading:
		b.WriteString("  " + m.spin.View() + " " + chatStyle.Render(m.tr.T(i18n.MsgLoading)) + "\n")
	case m.playing && m.speaking != "":
		line := m.tr.Tf(i18n.MsgSpeakingText, map[string]any{"Text": clip(m.speaking, 48)})
		b.WriteString(chatStyle.Render("  ♪ "+line) + "\n")
	case m.playing:
		b.WriteString(chatStyle.Render("  ♪ "+m.tr.T(i18n.MsgSpeaking)) + "\n")
	}
	if m.notice != "" {
		b.WriteString(urgentStyle.Render("  "+m.notice) + "\n")
	}

	if m.alert != nil {
		b.WriteByte('\n')
		b.WriteString(m.renderAlert())
		b.WriteByte('\n')
	}

	b.WriteByte('\n')
	b.WriteString(secondaryStyle.Render("  " + m.help()))
	return b.String()
}

func (m model) renderBar() string {
	explore := m.tr.T(i18n.MsgModeExplore)
	menu := m.tr.T(i18n.MsgModeMenu)
	if m.state.Mode == domain.ModeMenu {
		explore, menu = modeIdleStyle.Render(explore), modeActiveStyle.Render("["+menu+"]")
	} else {
		explore, menu = modeActiveStyle.Render("["+explore+"]"), modeIdleStyle.Render(menu)
	}
	content := " Concierge" + sepStyle.Render("  │  ") + explore + " " + menu + " "
	return barBg.Width(m.width).Render(content)
}

func (m model) renderResult() string {
	var title string
	switch m.state.Result.Kind {
	case domain.ResultStory:
		title = m.tr.T(i18n.MsgStoryTitle)
	case domain.ResultMenu:
		title = m.tr.T(i18n.MsgMenuTitle)
	default:
		return ""
	}
	w := max(m.width-4, 20)
	body := titleStyle.Render(title) + "\n" + primaryStyle.Render(m.state.Result.Text)
	return indent(cardStyle.Width(w).Render(body))
}

func (m model) renderAlert() string {
	w := max(min(m.width-4, 60), 20)
	body := urgentStyle.Bold(true).Render(m.alert.title) + "\n" + primaryStyle.Render(m.alert.message) +
		"\n" + secondaryStyle.Render("enter ⏎")
	return indent(alertStyle.Width(w).Render(body))
}

func (m model) help() string {
	switch {
	case m.editing:
		return m.tr.T(i18n.MsgHelpForm)
	case m.state.Mode == domain.ModeMenu:
		return m.tr.T(i18n.MsgHelpMenu)
	default:
		return m.tr.T(i18n.MsgHelpExplore)
	}
}

// clip shortens s to at most n runes.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func indent(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = "  " + l
	}
	return strings.Join(lines, "\n")
}
