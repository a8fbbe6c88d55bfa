package display

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Compile-time interface check.
var _ domain.Alerter = (*ConsoleAlerter)(nil)

// ConsoleAlerter writes alerts as styled lines. It serves alerts raised
// while the TUI is not running, such as a response landing during
// shutdown.
type ConsoleAlerter struct {
	out io.Writer
	log *logger.Logger
}

// NewConsoleAlerter creates an alerter writing to out (os.Stderr if nil).
func NewConsoleAlerter(out io.Writer, log *logger.Logger) *ConsoleAlerter {
	if out == nil {
		out = os.Stderr
	}
	return &ConsoleAlerter{out: out, log: log}
}

// Alert prints "title: message".
func (a *ConsoleAlerter) Alert(ctx context.Context, title, message string) error {
	a.log.Debug("alert: %s: %s", title, message)
	_, err := fmt.Fprintln(a.out, urgentStyle.Bold(true).Render(title+": ")+primaryStyle.Render(message))
	return err
}
