package export

import (
	"context"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultAlbum is the destination album when none is configured.
const DefaultAlbum = "Blurred"

// Config tunes the pipeline.
type Config struct {
	// Album is the named destination inside the photo store.
	Album string
	// SettleDelay is waited before the composite is captured.
	SettleDelay time.Duration
	// TipName is the one-shot gate consulted after the first success.
	TipName string
	// TipDelay postpones the tip after a successful save.
	TipDelay time.Duration
}

// TipGate decides whether a one-time tip fires.
type TipGate interface {
	ConsultAndArm(ctx context.Context, name string) (bool, error)
}

// Pipeline runs save requests: rasterize, authorize, persist, then maybe
// show the one-time tip. Each request runs independently; the pipeline
// does not serialize separate saves.
type Pipeline struct {
	cfg        Config
	rasterizer Rasterizer
	store      PhotoStore
	gate       TipGate
	opener     SettingsOpener
	dispatch   func(func())
	logger     logrus.FieldLogger

	mu    sync.Mutex
	onTip func()

	inFlight atomic.Int32
}

// New builds a pipeline. gate and opener may be nil; dispatch nil runs
// callbacks on the calling goroutine.
func New(cfg Config, rasterizer Rasterizer, store PhotoStore, gate TipGate, opener SettingsOpener, dispatch func(func()), logger logrus.FieldLogger) *Pipeline {
	if cfg.Album == "" {
		cfg.Album = DefaultAlbum
	}
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &Pipeline{
		cfg:        cfg,
		rasterizer: rasterizer,
		store:      store,
		gate:       gate,
		opener:     opener,
		dispatch:   dispatch,
		logger:     logger,
	}
}

// SetTipCallback sets the function showing the one-time tip. It runs on the dispatcher.
func (p *Pipeline) SetTipCallback(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onTip = fn
}

// InFlight returns the number of saves currently running.
func (p *Pipeline) InFlight() int {
	return int(p.inFlight.Load())
}

// request is the per-save state. It lives until the save settles.
type request struct {
	id      string
	state   State
	onState func(State)
	logger  logrus.FieldLogger
}

func (r *request) transition(next State) {
	r.logger.WithFields(logrus.Fields{
		"from": r.state.String(),
		"to":   next.String(),
	}).Debug("EXPORT: State change")
	r.state = next
	if r.onState != nil {
		r.onState(next)
	}
}

// Save runs one export to completion. onState, when set, observes every
// transition in order on the calling goroutine. ctx bounds the settle
// delay, the rasterizer and the authorization prompt; once the write has
// started the export is not abandoned.
func (p *Pipeline) Save(ctx context.Context, onState func(State)) (Result, error) {
	req := &request{
		id:      uuid.NewString(),
		state:   Idle,
		onState: onState,
	}
	req.logger = p.logger.WithField("request", req.id)

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	result, err := p.run(ctx, req)
	if err != nil {
		req.transition(Failed)
		req.logger.WithError(err).Warn("EXPORT: Save failed")
		return Result{}, err
	}
	req.transition(Succeeded)
	req.logger.WithFields(logrus.Fields{
		"asset": result.AssetID,
		"album": result.Album,
	}).Info("EXPORT: Save succeeded")

	result.TipFired = p.maybeFireTip(ctx, req)
	return result, nil
}

// SaveAsync runs Save off the calling goroutine. State changes and the
// final outcome are delivered through the dispatcher, the outcome exactly once.
func (p *Pipeline) SaveAsync(ctx context.Context, onState func(State), done func(Result, error)) {
	var observe func(State)
	if onState != nil {
		observe = func(s State) { p.dispatch(func() { onState(s) }) }
	}
	go func() {
		result, err := p.Save(ctx, observe)
		if done != nil {
			p.dispatch(func() { done(result, err) })
		}
	}()
}

func (p *Pipeline) run(ctx context.Context, req *request) (Result, error) {
	req.transition(Rasterizing)
	if err := p.settle(ctx); err != nil {
		return Result{}, err
	}
	img, err := p.rasterize(ctx)
	if err != nil {
		return Result{}, err
	}

	req.transition(Authorizing)
	if err := p.authorize(ctx, req); err != nil {
		return Result{}, err
	}

	req.transition(Persisting)
	assetID, err := p.persist(img)
	if err != nil {
		return Result{}, err
	}

	return Result{AssetID: assetID, Album: p.cfg.Album}, nil
}

// settle waits out the settle delay so the last frame is on screen.
func (p *Pipeline) settle(ctx context.Context) error {
	if p.cfg.SettleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return &RasterizationError{Err: ctx.Err()}
	}
}

func (p *Pipeline) rasterize(ctx context.Context) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RasterizationError{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	img, err = p.rasterizer.Rasterize(ctx)
	if err != nil {
		return nil, &RasterizationError{Err: err}
	}
	if img == nil || img.Bounds().Empty() {
		return nil, &RasterizationError{Err: fmt.Errorf("captured surface is empty")}
	}
	return img, nil
}

func (p *Pipeline) authorize(ctx context.Context, req *request) error {
	status, err := p.store.AuthorizationStatus(ctx)
	if err != nil {
		return &WriteError{Message: fmt.Sprintf("could not check photo library access: %v", err), Err: err}
	}

	if status == NotDetermined {
		req.logger.Info("EXPORT: Requesting photo library access")
		status, err = p.store.RequestAuthorization(ctx)
		if err != nil {
			return &WriteError{Message: fmt.Sprintf("could not request photo library access: %v", err), Err: err}
		}
	}

	if status != Authorized {
		recoverable := p.opener != nil && p.opener.CanOpenSettings()
		return &PermissionDeniedError{Status: status, RecoveryAvailable: recoverable, opener: p.opener}
	}
	return nil
}

type writeOutcome struct {
	assetID string
	err     error
}

// persist turns the store's callback into a single awaited outcome. A
// callback invoked more than once is ignored after the first call.
func (p *Pipeline) persist(img image.Image) (assetID string, err error) {
	done := make(chan writeOutcome, 1)
	var once sync.Once
	complete := func(id string, werr error) {
		fired := false
		once.Do(func() {
			fired = true
			done <- writeOutcome{assetID: id, err: werr}
		})
		if !fired {
			p.logger.Warn("EXPORT: Photo store completed a write twice, ignoring")
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				complete("", fmt.Errorf("panic in photo store: %v", r))
			}
		}()
		p.store.Write(img, p.cfg.Album, complete)
	}()

	out := <-done
	if out.err != nil {
		return "", &WriteError{Message: out.err.Error(), Err: out.err}
	}
	return out.assetID, nil
}

func (p *Pipeline) maybeFireTip(ctx context.Context, req *request) bool {
	if p.gate == nil || p.cfg.TipName == "" {
		return false
	}

	first, err := p.gate.ConsultAndArm(ctx, p.cfg.TipName)
	if err != nil {
		req.logger.WithError(err).Warn("EXPORT: Could not consult tip gate")
		return false
	}
	if !first {
		return false
	}

	p.mu.Lock()
	onTip := p.onTip
	p.mu.Unlock()
	if onTip == nil {
		return true
	}

	show := func() { p.dispatch(onTip) }
	if p.cfg.TipDelay > 0 {
		time.AfterFunc(p.cfg.TipDelay, show)
	} else {
		show()
	}
	return true
}
