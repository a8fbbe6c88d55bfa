package display

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hammamikhairi/concierge/internal/i18n"
)

// deniedModel is the whole application when a permission was refused:
// one fixed message, no actions, any key exits.
type deniedModel struct {
	text string
}

func (m deniedModel) Init() tea.Cmd { return nil }

func (m deniedModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if _, ok := msg.(tea.KeyMsg); ok {
		return m, tea.Quit
	}
	return m, nil
}

func (m deniedModel) View() string {
	return "\n" + urgentStyle.Render("  "+m.text) + "\n"
}

// RunDenied renders the permission denial view until a key is pressed.
func RunDenied(ctx context.Context, tr Translator) error {
	p := tea.NewProgram(deniedModel{text: tr.T(i18n.MsgPermissionDenied)}, tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
