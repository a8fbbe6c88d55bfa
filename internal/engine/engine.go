// Package engine implements the mode-dispatch orchestrator: it owns the
// client state (mode, photo, result, loading) and routes every user
// action to the right backend call and to narration playback.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/hammamikhairi/concierge/internal/domain"
	"github.com/hammamikhairi/concierge/internal/i18n"
	"github.com/hammamikhairi/concierge/internal/logger"
)

// Capturer takes and publishes photos.
type Capturer interface {
	Capture(ctx context.Context) (domain.PhotoHandle, error)
	Retake()
}

// Positioner exposes the latest location fix, if one exists.
type Positioner interface {
	Current() (domain.LocationFix, bool)
}

// Translator resolves user-facing message IDs.
type Translator interface {
	T(id string) string
}

// Observer receives a snapshot after every state transition. Observers run
// on the goroutine that made the transition, without the engine's lock.
type Observer func(State)

// State is the orchestrator's view of the client. Mutated only by Engine
// methods; callers receive copies.
type State struct {
	Mode    domain.Mode
	Photo   *domain.PhotoHandle
	Result  domain.ResultPayload
	Loading bool
	// Token identifies the newest action. A response is applied only if
	// its action's token is still current.
	Token uint64
	Menu  domain.MenuParameters
}

func (s State) clone() State {
	if s.Photo != nil {
		p := *s.Photo
		s.Photo = &p
	}
	return s
}

// Option configures the engine.
type Option func(*Engine)

// WithObserver registers a state observer.
func WithObserver(fn Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, fn)
	}
}

// WithHistory records every spoken narration so it can be replayed.
func WithHistory(store domain.NarrationStore) Option {
	return func(e *Engine) {
		e.history = store
	}
}

// WithInitialMode sets the starting mode.
func WithInitialMode(m domain.Mode) Option {
	return func(e *Engine) {
		e.state.Mode = m
	}
}

// Engine coordinates capture, location, backend and playback. It depends
// only on interfaces and is fully testable with fakes.
type Engine struct {
	backend  domain.Backend
	camera   Capturer
	location Positioner
	speaker  domain.Speaker
	alerter  domain.Alerter
	tr       Translator
	history  domain.NarrationStore
	validate *validator.Validate
	log      *logger.Logger

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	usesPhoto bool // the in-flight action sent the current photo
	observers []Observer
}

// New creates an engine with the given dependencies and options.
func New(
	backend domain.Backend,
	camera Capturer,
	location Positioner,
	speaker domain.Speaker,
	alerter domain.Alerter,
	tr Translator,
	log *logger.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		backend:  backend,
		camera:   camera,
		location: location,
		speaker:  speaker,
		alerter:  alerter,
		tr:       tr,
		validate: validator.New(),
		log:      log,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Subscribe registers an observer after construction.
func (e *Engine) Subscribe(fn Observer) {
	e.mu.Lock()
	e.observers = append(e.observers, fn)
	e.mu.Unlock()
}

// SetMode switches between Explore and Menu. A real change clears the
// photo and result and abandons any in-flight request.
func (e *Engine) SetMode(mode domain.Mode) {
	e.mu.Lock()
	if e.state.Mode == mode {
		e.mu.Unlock()
		return
	}
	e.state.Mode = mode
	e.state.Photo = nil
	e.state.Result = domain.ResultPayload{}
	e.invalidateLocked()
	snap := e.state.clone()
	e.mu.Unlock()

	e.camera.Retake()
	e.log.Info("mode -> %s", mode)
	e.publish(snap)
}

// SetMenuParameters replaces the menu form values.
func (e *Engine) SetMenuParameters(p domain.MenuParameters) {
	e.mu.Lock()
	e.state.Menu = p
	snap := e.state.clone()
	e.mu.Unlock()
	e.publish(snap)
}

// Retake discards the current photo. If the in-flight action sent that
// photo, its late response is dropped; other actions are left running.
func (e *Engine) Retake() {
	e.mu.Lock()
	e.state.Photo = nil
	if e.usesPhoto {
		e.invalidateLocked()
	}
	snap := e.state.clone()
	e.mu.Unlock()

	e.camera.Retake()
	e.log.Debug("retake")
	e.publish(snap)
}

// DismissResult clears the result card. Mode and photo are kept.
func (e *Engine) DismissResult() {
	e.mu.Lock()
	e.state.Result = domain.ResultPayload{}
	snap := e.state.clone()
	e.mu.Unlock()
	e.publish(snap)
}

// Capture takes a photo, publishes it and sends it to the backend call
// for the current mode: photo analysis in Explore, menu generation in
// Menu. It returns domain.ErrCaptureUnavailable silently when the camera
// is not ready, and domain.ErrStale when a newer action superseded it.
func (e *Engine) Capture(ctx context.Context) error {
	photo, err := e.camera.Capture(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrCaptureUnavailable) {
			return err
		}
		e.log.Error("capture failed: %v", err)
		return err
	}

	e.mu.Lock()
	e.state.Photo = &photo
	mode := e.state.Mode
	params := e.state.Menu
	snap := e.state.clone()
	e.mu.Unlock()
	e.publish(snap)

	if mode == domain.ModeMenu {
		return e.generateMenu(ctx, params, &photo)
	}
	return e.analyzePhoto(ctx, photo)
}

// SubmitMenu asks for a menu with the current form values and the
// current photo, if any.
func (e *Engine) SubmitMenu(ctx context.Context) error {
	e.mu.Lock()
	params := e.state.Menu
	var photo *domain.PhotoHandle
	if e.state.Photo != nil {
		p := *e.state.Photo
		photo = &p
	}
	e.mu.Unlock()

	return e.generateMenu(ctx, params, photo)
}

// AutoGuide narrates the current location. It is an Explore action: in
// Menu mode it returns domain.ErrWrongMode. Without a fix it returns
// domain.ErrLocationUnavailable. Neither case makes a request.
func (e *Engine) AutoGuide(ctx context.Context) error {
	fix, ok := e.location.Current()
	if !ok {
		e.log.Debug("auto-guide skipped: no location fix")
		return domain.ErrLocationUnavailable
	}

	actx, tok, done, err := e.begin(ctx, domain.ModeExplore, false, false)
	if err != nil {
		return err
	}
	defer done()

	e.log.Info("[%d] auto-guide at %.5f,%.5f", tok, fix.Latitude, fix.Longitude)
	text, err := e.backend.AnalyzeLocation(actx, fix)
	return e.finish(ctx, tok, domain.StoryResult(text), domain.ModeExplore, err)
}

// ReplayLast speaks the most recent narration again.
func (e *Engine) ReplayLast(ctx context.Context) error {
	if e.history == nil {
		return domain.ErrNotFound
	}
	n, err := e.history.Latest(ctx)
	if err != nil {
		return err
	}
	e.log.Debug("replaying narration %s", n.ID)
	return e.speaker.Play(ctx, n.Text)
}

// StopAudio releases the active playback session.
func (e *Engine) StopAudio() {
	e.speaker.Stop()
}

func (e *Engine) analyzePhoto(ctx context.Context, photo domain.PhotoHandle) error {
	actx, tok, done, err := e.begin(ctx, domain.ModeExplore, true, true)
	if err != nil {
		return err
	}
	defer done()

	e.log.Info("[%d] analyzing photo %s", tok, photo.URI)
	text, err := e.backend.AnalyzePhoto(actx, photo)
	return e.finish(ctx, tok, domain.StoryResult(text), domain.ModeExplore, err)
}

func (e *Engine) generateMenu(ctx context.Context, params domain.MenuParameters, photo *domain.PhotoHandle) error {
	if err := e.validate.StructCtx(ctx, params); err != nil {
		e.log.Debug("menu form incomplete: %v", err)
		e.raise(ctx, e.tr.T(i18n.MsgInvalidMenu))
		return fmt.Errorf("engine: %w: %w", domain.ErrInvalidMenu, err)
	}

	actx, tok, done, err := e.begin(ctx, domain.ModeMenu, true, photo != nil)
	if err != nil {
		return err
	}
	defer done()

	e.log.Info("[%d] generating menu (people=%s, budget=%s, photo=%t)", tok, params.People, params.Budget, photo != nil)
	text, err := e.backend.GenerateMenu(actx, params, photo)
	return e.finish(ctx, tok, domain.MenuResult(text), domain.ModeMenu, err)
}

// begin opens a new action for mode: it takes a fresh token, cancels the
// previous action's request and raises Loading. It refuses with
// domain.ErrWrongMode when the client is no longer in mode, so a result
// can only be produced for the mode that is showing. Every mode switch
// bumps the token, which makes the check hold until finish. The returned
// func releases the action's context.
func (e *Engine) begin(ctx context.Context, mode domain.Mode, clearResult, usesPhoto bool) (context.Context, uint64, func(), error) {
	e.mu.Lock()
	if e.state.Mode != mode {
		current := e.state.Mode
		e.mu.Unlock()
		e.log.Debug("%s action refused in %s mode", mode, current)
		return nil, 0, nil, fmt.Errorf("engine: %s action: %w", mode, domain.ErrWrongMode)
	}
	actx, cancel := context.WithCancel(ctx)
	if e.cancel != nil {
		e.cancel()
	}
	e.cancel = cancel
	e.usesPhoto = usesPhoto
	e.state.Token++
	tok := e.state.Token
	e.state.Loading = true
	if clearResult {
		e.state.Result = domain.ResultPayload{}
	}
	snap := e.state.clone()
	e.mu.Unlock()

	e.publish(snap)
	return actx, tok, cancel, nil
}

// finish applies the outcome of action tok. A stale outcome is dropped
// without touching state, audio or alerts. Stories are spoken and
// recorded; menus are only shown.
func (e *Engine) finish(ctx context.Context, tok uint64, result domain.ResultPayload, source domain.Mode, err error) error {
	e.mu.Lock()
	if e.state.Token != tok {
		e.mu.Unlock()
		e.log.Debug("[%d] dropping stale response", tok)
		return domain.ErrStale
	}
	e.state.Loading = false
	e.cancel = nil
	e.usesPhoto = false
	if err != nil {
		e.state.Result = domain.ResultPayload{}
	} else {
		e.state.Result = result
	}
	snap := e.state.clone()
	e.mu.Unlock()
	e.publish(snap)

	if err != nil {
		e.log.Error("[%d] backend call failed: %v", tok, err)
		e.raise(ctx, e.tr.T(i18n.MsgConnectionFailed))
		return err
	}

	e.log.Info("[%d] %s result (%d chars)", tok, result.Kind, len(result.Text))
	if result.Kind == domain.ResultStory {
		e.speak(ctx, result.Text, source)
	}
	return nil
}

// speak records and plays a narration. Playback outlives the action, so
// it runs on a context that is not cancelled by the next action.
func (e *Engine) speak(ctx context.Context, text string, source domain.Mode) {
	pctx := context.WithoutCancel(ctx)
	if e.history != nil {
		if err := e.history.Save(pctx, &domain.Narration{Text: text, Source: source}); err != nil {
			e.log.Warn("saving narration: %v", err)
		}
	}
	if err := e.speaker.Play(pctx, text); err != nil {
		e.log.Error("playback failed: %v", err)
	}
}

// raise shows one alert. Alert failures are only logged.
func (e *Engine) raise(ctx context.Context, message string) {
	if e.alerter == nil {
		return
	}
	if err := e.alerter.Alert(context.WithoutCancel(ctx), e.tr.T(i18n.MsgAlertTitle), message); err != nil {
		e.log.Warn("alert failed: %v", err)
	}
}

// invalidateLocked bumps the token and cancels the in-flight request so
// that its response, if any, is dropped. Must be called with e.mu held.
func (e *Engine) invalidateLocked() {
	e.state.Token++
	e.state.Loading = false
	e.usesPhoto = false
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) publish(s State) {
	e.mu.Lock()
	obs := make([]Observer, len(e.observers))
	copy(obs, e.observers)
	e.mu.Unlock()

	for _, fn := range obs {
		fn(s)
	}
}
