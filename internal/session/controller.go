package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"classattend/internal/attendance"
	"classattend/internal/face"
	"classattend/internal/observability"
)

var (
	// ErrSampleDropped is returned when a sample arrives while the previous
	// one is still being processed. Samples are never queued.
	ErrSampleDropped = errors.New("sample dropped: previous sample still processing")
	// ErrClosed is returned by a controller after Close.
	ErrClosed = errors.New("session closed")
	// ErrNoDetector is returned by OfferFrame when no detector is configured.
	ErrNoDetector = errors.New("no detector configured")
)

// Candidates supplies the live embedding snapshot.
type Candidates interface {
	All(ctx context.Context) ([]face.Candidate, error)
}

// Confirmer writes the attendance mark once a hold completes.
type Confirmer interface {
	ConfirmAttendance(ctx context.Context, identityID string, now time.Time) (attendance.Outcome, attendance.Event, error)
}

// Detector turns an image into zero or more face detections.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]face.Detection, error)
}

// Config holds the session policy knobs.
type Config struct {
	// SampleEvery sends one in every N frames to the detector.
	SampleEvery int
	// Hold is how long a match is held before attendance is confirmed.
	Hold time.Duration
	// Cooldown keeps the result on screen before returning to Idle.
	Cooldown time.Duration
	// Threshold is the match distance threshold; <= 0 uses face.DefaultThreshold.
	Threshold float64
}

// DefaultConfig returns the stock policy: 1-in-15 frames, 5 s hold, 2 s cool-down.
func DefaultConfig() Config {
	return Config{
		SampleEvery: 15,
		Hold:        5 * time.Second,
		Cooldown:    2 * time.Second,
		Threshold:   face.DefaultThreshold,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SampleEvery <= 0 {
		c.SampleEvery = d.SampleEvery
	}
	if c.Hold <= 0 {
		c.Hold = d.Hold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = d.Cooldown
	}
	if c.Threshold <= 0 {
		c.Threshold = d.Threshold
	}
	return c
}

// Deps are the collaborators a controller needs.
type Deps struct {
	Candidates Candidates
	Confirmer  Confirmer
	Detector   Detector
	Clock      Clock
	Notify     Notifier
}

// Controller is the state machine of one camera session. Samples are
// processed one at a time; the countdown is cancelled by Reset and Close.
type Controller struct {
	id     string
	cfg    Config
	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	busy   atomic.Bool
	frames atomic.Uint64

	mu     sync.Mutex
	state  State
	gen    uint64
	timer  Timer
	closed bool
}

// NewController creates an idle controller.
func NewController(id string, cfg Config, deps Deps) *Controller {
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}
	if deps.Notify == nil {
		deps.Notify = func(Update) {}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		id:     id,
		cfg:    cfg.withDefaults(),
		deps:   deps,
		ctx:    ctx,
		cancel: cancel,
		state:  idle(),
	}
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OfferFrame counts a camera frame and, on every SampleEvery-th one, runs the
// detector and processes the result. sampled reports whether the frame was
// used.
func (c *Controller) OfferFrame(ctx context.Context, image []byte) (st State, sampled bool, err error) {
	if c.deps.Detector == nil {
		return State{}, false, ErrNoDetector
	}
	if c.frames.Add(1)%uint64(c.cfg.SampleEvery) != 0 {
		observability.SamplesProcessed.WithLabelValues("skipped").Inc()
		return c.State(), false, nil
	}
	st, err = c.process(ctx, func(ctx context.Context) ([]face.Detection, error) {
		return c.deps.Detector.Detect(ctx, image)
	})
	return st, true, err
}

// Sample processes one set of detections.
func (c *Controller) Sample(ctx context.Context, detections []face.Detection) (State, error) {
	return c.process(ctx, func(context.Context) ([]face.Detection, error) {
		return detections, nil
	})
}

func (c *Controller) process(ctx context.Context, detect func(context.Context) ([]face.Detection, error)) (State, error) {
	if !c.busy.CompareAndSwap(false, true) {
		observability.SamplesProcessed.WithLabelValues("dropped").Inc()
		return c.State(), ErrSampleDropped
	}
	defer c.busy.Store(false)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return State{}, ErrClosed
	}
	// A hold only ends through its timers or Reset, even if the face leaves.
	if c.state.Kind == Holding {
		st := c.state
		c.mu.Unlock()
		observability.SamplesProcessed.WithLabelValues("holding").Inc()
		return st, nil
	}
	gen := c.gen
	c.mu.Unlock()

	detections, err := detect(ctx)
	if err != nil {
		observability.SamplesProcessed.WithLabelValues("error").Inc()
		return c.State(), err
	}

	switch len(detections) {
	case 0:
		observability.SamplesProcessed.WithLabelValues("no_face").Inc()
		return c.transition(gen, idle(), Update{}), nil
	case 1:
		return c.matchOne(ctx, gen, detections[0])
	default:
		observability.SamplesProcessed.WithLabelValues("multiple_faces").Inc()
		st := c.State()
		c.deps.Notify(Update{SessionID: c.id, State: st, Faces: len(detections), Hint: HintMultipleFaces})
		return st, nil
	}
}

func (c *Controller) matchOne(ctx context.Context, gen uint64, det face.Detection) (State, error) {
	candidates, err := c.deps.Candidates.All(ctx)
	if err != nil {
		observability.SamplesProcessed.WithLabelValues("error").Inc()
		return c.State(), err
	}

	start := time.Now()
	res, err := face.Match(det.Embedding, candidates, c.cfg.Threshold)
	observability.MatchDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		observability.SamplesProcessed.WithLabelValues("invalid").Inc()
		return c.State(), err
	}

	box := det.Box
	if !res.Matched() {
		observability.SamplesProcessed.WithLabelValues("unmatched").Inc()
		return c.transition(gen, State{Kind: Unmatched}, Update{Faces: 1, Box: &box, Hint: HintRegisterFirst}), nil
	}
	observability.SamplesProcessed.WithLabelValues("matched").Inc()
	return c.hold(gen, res, &box), nil
}

// transition applies next unless a Reset or Close happened since gen was read.
func (c *Controller) transition(gen uint64, next State, upd Update) State {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		st := c.state
		c.mu.Unlock()
		return st
	}
	changed := c.state != next
	c.state = next
	c.mu.Unlock()

	if changed || upd.Hint != "" {
		upd.SessionID, upd.State = c.id, next
		c.deps.Notify(upd)
	}
	return next
}

func (c *Controller) hold(gen uint64, res face.Result, box *face.Box) State {
	c.mu.Lock()
	if c.closed || c.gen != gen {
		st := c.state
		c.mu.Unlock()
		return st
	}
	c.gen++
	g := c.gen
	c.state = holding(res.IdentityID, c.deps.Clock.Now(), res.Distance)
	c.timer = c.deps.Clock.AfterFunc(c.cfg.Hold, func() { c.confirm(g) })
	st := c.state
	c.mu.Unlock()

	slog.Debug("session holding", "session", c.id, "identity", res.IdentityID, "distance", res.Distance)
	c.deps.Notify(Update{SessionID: c.id, State: st, Faces: 1, Box: box})
	return st
}

func (c *Controller) confirm(g uint64) {
	c.mu.Lock()
	if c.closed || c.gen != g || c.state.Kind != Holding {
		c.mu.Unlock()
		return
	}
	id := c.state.IdentityID
	c.mu.Unlock()

	outcome, evt, err := c.deps.Confirmer.ConfirmAttendance(c.ctx, id, c.deps.Clock.Now())
	upd := Update{SessionID: c.id, Faces: 1}
	switch {
	case errors.Is(err, attendance.ErrNoActiveClass):
		upd.Outcome, upd.Hint = HintNoActiveClass, HintNoActiveClass
	case err != nil:
		slog.Error("confirm attendance", "session", c.id, "identity", id, "error", err)
		upd.Outcome, upd.Error = "error", err.Error()
	default:
		upd.Outcome = outcome.String()
		upd.Event = &evt
	}

	c.mu.Lock()
	if !c.closed && c.gen == g {
		c.timer = c.deps.Clock.AfterFunc(c.cfg.Cooldown, func() { c.release(g) })
	}
	upd.State = c.state
	c.mu.Unlock()
	c.deps.Notify(upd)
}

func (c *Controller) release(g uint64) {
	c.mu.Lock()
	if c.closed || c.gen != g {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.timer = nil
	c.state = idle()
	st := c.state
	c.mu.Unlock()
	c.deps.Notify(Update{SessionID: c.id, State: st})
}

// Reset cancels any pending countdown and returns to Idle.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopTimerLocked()
	c.gen++
	c.state = idle()
	st := c.state
	c.mu.Unlock()
	c.deps.Notify(Update{SessionID: c.id, State: st})
	return nil
}

// Close tears the session down. Pending countdowns never fire afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.gen++
	c.state = idle()
	c.cancel()
}

func (c *Controller) stopTimerLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
