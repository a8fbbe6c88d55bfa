package display

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/concierge/internal/audio"
	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/engine"
	"github.com/hammamikhairi/concierge/internal/i18n"
)

type fakeActions struct {
	mu     sync.Mutex
	state    engine.State
	called   []string
	params   domain.MenuParameters
	guideErr error
}

func (a *fakeActions) record(name string) {
	a.mu.Lock()
	a.called = append(a.called, name)
	a.mu.Unlock()
}

func (a *fakeActions) calls() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.called...)
}

func (a *fakeActions) Snapshot() engine.State { return a.state }
func (a *fakeActions) SetMode(m domain.Mode) { a.record("mode:" + m.String()) }
func (a *fakeActions) SetMenuParameters(p domain.MenuParameters) {
	a.mu.Lock()
	a.params = p
	a.mu.Unlock()
	a.record("params")
}
func (a *fakeActions) Capture(context.Context) error {
	a.record("capture")
	return nil
}
func (a *fakeActions) AutoGuide(context.Context) error {
	a.record("guide")
	if a.guideErr != nil {
		return a.guideErr
	}
	return domain.ErrLocationUnavailable
}
func (a *fakeActions) SubmitMenu(context.Context) error {
	a.record("submit")
	return nil
}
func (a *fakeActions) Retake() { a.record("retake") }
func (a *fakeActions) DismissResult() { a.record("dismiss") }
func (a *fakeActions) ReplayLast(context.Context) error {
	a.record("replay")
	return nil
}
func (a *fakeActions) StopAudio() { a.record("stop") }

type idTranslator struct{}

func (idTranslator) T(id string) string { return id }
func (idTranslator) Tf(id string, _ map[string]any) string { return id }

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// exec runs cmd and feeds its messages back into the model until no
// further command is produced.
func exec(t *testing.T, m tea.Model, cmd tea.Cmd) tea.Model {
	t.Helper()
	for i := 0; cmd != nil && i < 10; i++ {
		msg := cmd()
		if msg == nil {
			return m
		}
		m, cmd = m.Update(msg)
	}
	return m
}

func press(t *testing.T, m tea.Model, k tea.KeyMsg) tea.Model {
	t.Helper()
	m, cmd := m.Update(k)
	return exec(t, m, cmd)
}

func TestKeysDispatchActions(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"c", "capture"},
		{"m", "mode:menu"},
		{"r", "retake"},
		{"x", "dismiss"},
		{"p", "replay"},
		{"s", "stop"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			a := &fakeActions{}
			var m tea.Model = newModel(context.Background(), a, idTranslator{}, nil)
			press(t, m, key(tt.key))
			if got := a.calls(); len(got) != 1 || got[0] != tt.want {
				t.Fatalf("expected [%s], got %v", tt.want, got)
			}
		})
	}
}

func TestGuideWithoutFixShowsNotice(t *testing.T) {
	a := &fakeActions{}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, nil)
	m = press(t, m, key("g"))
	if !strings.Contains(m.View(), i18n.MsgNoLocation) {
		t.Fatal("expected the no-location notice")
	}
}

func TestAlertIsModal(t *testing.T) {
	a := &fakeActions{}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, nil)
	m, _ = m.Update(alertMsg{title: "Error", message: "Backend connection failed."})

	if !strings.Contains(m.View(), "Backend connection failed.") {
		t.Fatal("alert not rendered")
	}
	m = press(t, m, key("c"))
	if len(a.calls()) != 0 {
		t.Fatal("keys must be swallowed while an alert is shown")
	}
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if strings.Contains(m.View(), "Backend connection failed.") {
		t.Fatal("alert not dismissed")
	}
}

func TestRendersState(t *testing.T) {
	a := &fakeActions{}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, nil)

	m, _ = m.Update(stateMsg(engine.State{
		Mode:    domain.ModeExplore,
		Result:  domain.StoryResult("The lanterns are lit for the festival."),
		Loading: true,
	}))
	v := m.View()
	for _, want := range []string{i18n.MsgStoryTitle, "The lanterns are lit", i18n.MsgLoading, i18n.MsgHelpExplore} {
		if !strings.Contains(v, want) {
			t.Fatalf("view missing %q", want)
		}
	}

	m, _ = m.Update(stateMsg(engine.State{Mode: domain.ModeMenu, Result: domain.MenuResult("Dumplings")}))
	v = m.View()
	if !strings.Contains(v, i18n.MsgMenuTitle) || strings.Contains(v, i18n.MsgStoryTitle) {
		t.Fatal("menu result should replace the story card")
	}
	if !strings.Contains(v, i18n.MsgFieldTaste) {
		t.Fatal("menu mode should show the form")
	}
}

func TestMenuFormSubmit(t *testing.T) {
	a := &fakeActions{state: engine.State{Mode: domain.ModeMenu}}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, nil)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}) // start editing
	m = press(t, m, key("4"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, key("300"))
	m = press(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = press(t, m, key("mild"))
	press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	want := domain.MenuParameters{People: "4", Budget: "300", Taste: "mild"}
	if a.params != want {
		t.Fatalf("expected %+v, got %+v", want, a.params)
	}
	got := a.calls()
	if len(got) != 2 || got[0] != "params" || got[1] != "submit" {
		t.Fatalf("expected params then submit, got %v", got)
	}
}

type fakeListener struct {
	text string
	err  error
}

func (l fakeListener) Listen(context.Context) (string, error) { return l.text, l.err }

func TestDictationFillsFocusedField(t *testing.T) {
	a := &fakeActions{state: engine.State{Mode: domain.ModeMenu}}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, fakeListener{text: "not too spicy"})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyShiftTab}) // wraps to taste
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})

	if a.params.Taste != "not too spicy" {
		t.Fatalf("expected dictated taste, got %+v", a.params)
	}
}

func TestDictationNothingHeardIsTranslated(t *testing.T) {
	a := &fakeActions{state: engine.State{Mode: domain.ModeMenu}}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, fakeListener{err: audio.ErrNothingHeard})

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlD})

	v := m.View()
	if !strings.Contains(v, i18n.MsgNothingHeard) {
		t.Fatal("expected the translated nothing-heard notice")
	}
	if strings.Contains(v, audio.ErrNothingHeard.Error()) {
		t.Fatal("raw error text leaked into the view")
	}
	if len(a.calls()) != 0 {
		t.Fatalf("no form update expected, got %v", a.calls())
	}
}

func TestGuideInMenuModeShowsNotice(t *testing.T) {
	a := &fakeActions{guideErr: domain.ErrWrongMode}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, nil)
	m = press(t, m, key("g"))
	if !strings.Contains(m.View(), i18n.MsgGuideExploreOnly) {
		t.Fatal("expected the explore-only notice")
	}
}

func TestSpeakingShowsNarration(t *testing.T) {
	a := &fakeActions{}
	var m tea.Model = newModel(context.Background(), a, idTranslator{}, nil)

	m, _ = m.Update(playingMsg{playing: true, text: "The lanterns are lit for the festival."})
	if !strings.Contains(m.View(), i18n.MsgSpeakingText) {
		t.Fatal("expected the narration line while speaking")
	}

	m, _ = m.Update(playingMsg{playing: false})
	v := m.View()
	if strings.Contains(v, i18n.MsgSpeakingText) || strings.Contains(v, i18n.MsgSpeaking) {
		t.Fatal("speaking line should clear when playback stops")
	}
}

func TestClip(t *testing.T) {
	if got := clip("短文本", 10); got != "短文本" {
		t.Fatalf("short text changed: %q", got)
	}
	if got := clip("你好世界你好世界", 4); got != "你好世…" {
		t.Fatalf("unexpected clip %q", got)
	}
}

func TestDeniedView(t *testing.T) {
	m := deniedModel{text: "No access to camera, location or audio."}
	if !strings.Contains(m.View(), "No access to camera, location or audio.") {
		t.Fatal("denial message missing")
	}
	if _, cmd := m.Update(key("c")); cmd == nil {
		t.Fatal("any key should quit")
	}
}

func TestRenderBanner(t *testing.T) {
	out := renderBanner(120, "local concierge")
	if !strings.Contains(out, "local concierge") {
		t.Fatal("subtitle missing")
	}
	if !strings.HasPrefix(out, " ") {
		t.Fatal("banner should be centred")
	}
}
