// Concierge: a terminal travel companion. Point the camera at something
// and hear its story, ask for a guide to where you stand, or get a menu
// picked for your table.
//
// Usage:
//
//	concierge [-backend URL] [-camera PATH] [-lat N -lon N | -ip-locate] [-lang en|zh]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/hammamikhairi/concierge/internal/audio"
	"github.com/hammamikhairi/concierge/internal/backend"
	"github.com/hammamikhairi/concierge/internal/capture"
	"github.com/hammamikhairi/concierge/internal/config"
	"github.com/hammamikhairi/concierge/internal/display"
	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/engine"
	"github.com/hammamikhairi/concierge/internal/i18n"
	"github.com/hammamikhairi/concierge/internal/location"
	"github.com/hammamikhairi/concierge/internal/logger"
	"github.com/hammamikhairi/concierge/internal/permission"
	"github.com/hammamikhairi/concierge/internal/storage"
)

func main() {
	os.Exit(run(os.Args[1:], display.RunDenied))
}

// run wires the client and returns the process exit code. Deferred
// cleanup (log rotation, signal handling) always runs before main exits.
func run(args []string, showDenied func(context.Context, display.Translator) error) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	// Direct logs to a rotating file by default so the TUI stays clean.
	var logOut io.Writer = os.Stderr
	if cfg.LogFile != "" && cfg.LogFile != "stderr" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     14, // days
		}
		defer rotator.Close()
		logOut = rotator
	}

	// Third-party libraries (the whisper transcriber) log through the
	// standard logger; keep them off the terminal too.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(cfg.LogLevel, logOut)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tr, err := i18n.New(cfg.Lang)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Println(display.RenderBanner("local concierge"))
	fmt.Println(display.BannerStyle.Render("  " + tr.T(i18n.MsgPermissionPending)))

	// Devices. Opening each one is its permission probe.
	camera := capture.NewFileCamera(cfg.Camera)
	locator := newLocator(cfg, log.Named("location"))
	device, deviceErr := newDevice(cfg, log.Named("audio"))

	gate := permission.NewGate(permission.Checks{
		domain.PermissionCamera: camera.Probe,
		domain.PermissionLocation: func(context.Context) error {
			if locator == nil {
				return errors.New("no locator configured: set -lat/-lon or -ip-locate")
			}
			return nil
		},
		domain.PermissionAudio: func(context.Context) error { return deviceErr },
	}, log.Named("permission"))

	if gate.Resolve(ctx) != domain.GateGranted {
		for _, p := range permission.Required {
			if st := gate.State(p); st != domain.PermissionGranted {
				log.Warn("%s permission %s", p, st)
			}
		}
		if err := showDenied(ctx, tr); err != nil {
			log.Error("display: %v", err)
		}
		return 1
	}

	client := backend.NewClient(cfg.BackendURL, log.Named("backend"),
		backend.WithHTTPTimeout(cfg.Timeout),
	)
	provider := location.NewProvider(locator, log.Named("location"))
	controller := capture.NewController(camera, log.Named("capture"))
	history := storage.NewMemoryStore(storage.DefaultCapacity, log.Named("history"))

	// The UI is built after the engine it drives; these closures only run
	// once it exists.
	var ui *display.UI
	var speaker *audio.Manager
	speaker = audio.NewManager(client, device, log.Named("audio"),
		audio.WithOnChange(func(playing bool) { ui.SetPlaying(playing, speaker.NowPlaying()) }),
	)
	console := display.NewConsoleAlerter(os.Stderr, log.Named("alert"))
	alerter := alertFunc(func(ctx context.Context, title, message string) error {
		if err := ui.Alert(ctx, title, message); err != nil {
			return console.Alert(ctx, title, message)
		}
		return nil
	})

	eng := engine.New(client, controller, provider, speaker, alerter, tr, log.Named("engine"),
		engine.WithHistory(history),
	)

	var uiOpts []display.Option
	if _, err := os.Stat(cfg.WhisperModel); err == nil {
		dictation := audio.NewDictation(cfg.WhisperBin, cfg.WhisperModel, speaker, log.Named("dictation"),
			audio.WithRecordDuration(cfg.DictateDuration()),
		)
		uiOpts = append(uiOpts, display.WithDictation(dictation))
		log.Info("dictation enabled (bin=%s, model=%s, %s)", cfg.WhisperBin, cfg.WhisperModel, cfg.DictateDuration())
	} else {
		log.Info("dictation disabled: whisper model not found at %s", cfg.WhisperModel)
	}

	ui = display.NewUI(eng, tr, uiOpts...)
	eng.Subscribe(ui.OnState)

	// Startup work that needs the UI: backend reachability and the
	// first location fix.
	go func() {
		ui.WaitReady()

		if st, err := client.Ping(ctx); err != nil {
			log.Warn("backend %s unreachable: %v", client.BaseURL(), err)
			ui.Notice(tr.Tf(i18n.MsgBackendUnreachable, map[string]any{"URL": client.BaseURL()}))
		} else {
			log.Info("backend %s: %s (%s)", client.BaseURL(), st.Status, st.Message)
		}

		if err := provider.Refresh(ctx); err == nil {
			if fix, ok := provider.Current(); ok {
				ui.SetLocation(fix)
			}
		}
	}()

	log.Info("concierge started (backend=%s, lang=%s, mode=%s)", cfg.BackendURL, cfg.Lang, eng.Snapshot().Mode)

	// Bubble Tea owns the terminal; blocks until quit.
	if err := ui.Run(ctx); err != nil {
		log.Error("display: %v", err)
	}
	speaker.Stop()
	return 0
}

// newLocator picks fixed coordinates over an IP lookup. Nil means no
// location source is available.
func newLocator(cfg config.Config, log *logger.Logger) domain.Locator {
	switch {
	case cfg.HasCoords:
		return location.NewStatic(cfg.Latitude, cfg.Longitude)
	case cfg.IPLocate:
		return location.NewIPLocator("", cfg.Timeout, log)
	default:
		return nil
	}
}

// newDevice opens the audio output, or a silent device with -no-audio.
func newDevice(cfg config.Config, log *logger.Logger) (audio.Device, error) {
	if cfg.NoAudio {
		log.Info("audio disabled, narration is silent")
		return audio.NewNoOp(0, log), nil
	}
	player, err := audio.NewPlayer(cfg.SampleRate, log)
	if err != nil {
		return nil, fmt.Errorf("opening audio device: %w", err)
	}
	return player, nil
}

// alertFunc adapts a function to domain.Alerter.
type alertFunc func(ctx context.Context, title, message string) error

func (f alertFunc) Alert(ctx context.Context, title, message string) error {
	return f(ctx, title, message)
}
