package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"classattend/internal/attendance"
	"classattend/internal/face"
	"classattend/internal/identity"
	"classattend/internal/timetable"
)

// fakeClock fires timers only when Advance is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward, running due timers in order on the caller's goroutine.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

type recorder struct {
	mu      sync.Mutex
	updates []Update
}

func (r *recorder) notify(u Update) {
	r.mu.Lock()
	r.updates = append(r.updates, u)
	r.mu.Unlock()
}

func (r *recorder) last() Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.updates) == 0 {
		return Update{}
	}
	return r.updates[len(r.updates)-1]
}

type fixture struct {
	ctl    *Controller
	clock  *fakeClock
	ledger *attendance.MemoryLedger
	rec    *recorder
}

// monday0930 is inside the CS101 slot.
var monday0930 = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)

func newFixture(t *testing.T, now time.Time, det Detector) *fixture {
	t.Helper()
	ctx := context.Background()

	store := identity.NewMemoryStore()
	if err := store.Upsert(ctx, identity.Identity{ID: "1VE22IS001", Name: "Asha", Embedding: face.Embedding{0, 0, 0}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	slots := timetable.NewIndex(nil, time.UTC)
	err := slots.Replace(ctx, []timetable.Slot{
		{SubjectCode: "CS101", SubjectName: "Data Structures", Day: timetable.Day(time.Monday), Start: 9 * 60, End: 10 * 60},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}

	ledger := attendance.NewMemoryLedger()
	clock := newFakeClock(now)
	rec := &recorder{}
	ctl := NewController("s1", Config{SampleEvery: 3, Hold: 5 * time.Second, Cooldown: 2 * time.Second}, Deps{
		Candidates: store,
		Confirmer:  attendance.NewService(ledger, slots, time.UTC),
		Detector:   det,
		Clock:      clock,
		Notify:     rec.notify,
	})
	t.Cleanup(ctl.Close)
	return &fixture{ctl: ctl, clock: clock, ledger: ledger, rec: rec}
}

func one(e ...float64) []face.Detection {
	return []face.Detection{{Box: face.Box{X: 10, Y: 10, Width: 100, Height: 100}, Embedding: e}}
}

func (f *fixture) day(t *testing.T) []attendance.Event {
	t.Helper()
	events, err := f.ledger.QueryByDate(context.Background(), "2024-01-01")
	if err != nil {
		t.Fatalf("QueryByDate: %v", err)
	}
	return events
}

func TestMatchHoldConfirm(t *testing.T) {
	f := newFixture(t, monday0930, nil)
	ctx := context.Background()

	st, err := f.ctl.Sample(ctx, one(0.1, 0, 0))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if st.Kind != Holding || st.IdentityID != "1VE22IS001" {
		t.Fatalf("state = %+v, want Holding 1VE22IS001", st)
	}

	f.clock.Advance(4 * time.Second)
	if got := len(f.day(t)); got != 0 {
		t.Fatalf("marked before the hold elapsed: %d events", got)
	}

	f.clock.Advance(time.Second)
	events := f.day(t)
	if len(events) != 1 || events[0].SubjectCode != "CS101" || events[0].IdentityID != "1VE22IS001" {
		t.Fatalf("events = %+v, want one CS101 mark", events)
	}
	if u := f.rec.last(); u.Outcome != "marked" || u.Event == nil {
		t.Errorf("last update = %+v, want marked outcome", u)
	}
	if f.ctl.State().Kind != Holding {
		t.Errorf("state left Holding before cool-down")
	}

	f.clock.Advance(2 * time.Second)
	if st := f.ctl.State(); st.Kind != Idle {
		t.Errorf("state after cool-down = %v, want Idle", st.Kind)
	}
}

func TestSamplesIgnoredWhileHolding(t *testing.T) {
	f := newFixture(t, monday0930, nil)
	ctx := context.Background()

	if _, err := f.ctl.Sample(ctx, one(0.1, 0, 0)); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	f.clock.Advance(2 * time.Second)
	// An empty frame mid-hold does not cancel the countdown.
	st, err := f.ctl.Sample(ctx, nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if st.Kind != Holding {
		t.Fatalf("state = %v, want Holding", st.Kind)
	}
	f.clock.Advance(3 * time.Second)
	if got := len(f.day(t)); got != 1 {
		t.Fatalf("events = %d, want 1", got)
	}
}

func TestSecondHoldIsAlreadyMarked(t *testing.T) {
	f := newFixture(t, monday0930, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := f.ctl.Sample(ctx, one(0.1, 0, 0)); err != nil {
			t.Fatalf("Sample %d: %v", i, err)
		}
		f.clock.Advance(7 * time.Second)
	}
	if got := len(f.day(t)); got != 1 {
		t.Fatalf("events = %d, want 1", got)
	}
	if u := f.rec.last(); u.State.Kind != Idle {
		t.Errorf("last update state = %v, want Idle", u.State.Kind)
	}
	var outcomes []string
	for _, u := range f.rec.updates {
		if u.Outcome != "" {
			outcomes = append(outcomes, u.Outcome)
		}
	}
	if len(outcomes) != 2 || outcomes[0] != "marked" || outcomes[1] != "already_marked" {
		t.Errorf("outcomes = %v", outcomes)
	}
}

func TestResetCancelsHold(t *testing.T) {
	f := newFixture(t, monday0930, nil)
	ctx := context.Background()

	if _, err := f.ctl.Sample(ctx, one(0.1, 0, 0)); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	f.clock.Advance(3 * time.Second)
	if err := f.ctl.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if st := f.ctl.State(); st.Kind != Idle {
		t.Fatalf("state = %v, want Idle", st.Kind)
	}
	f.clock.Advance(10 * time.Second)
	if got := len(f.day(t)); got != 0 {
		t.Fatalf("cancelled hold still marked %d events", got)
	}
}

func TestNoFaceReturnsToIdle(t *testing.T) {
	f := newFixture(t, monday0930, nil)
	ctx := context.Background()

	if _, err := f.ctl.Sample(ctx, one(5, 5, 5)); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if st := f.ctl.State(); st.Kind != Unmatched {
		t.Fatalf("state = %v, want Unmatched", st.Kind)
	}
	st, err := f.ctl.Sample(ctx, nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if st.Kind != Idle {
		t.Errorf("state = %v, want Idle", st.Kind)
	}
}

func TestUnmatchedHint(t *testing.T) {
	f := newFixture(t, monday0930, nil)

	st, err := f.ctl.Sample(context.Background(), one(5, 5, 5))
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if st.Kind != Unmatched {
		t.Fatalf("state = %v, want Unmatched", st.Kind)
	}
	if u := f.rec.last(); u.Hint != HintRegisterFirst || u.Box == nil {
		t.Errorf("update = %+v, want register hint with box", u)
	}

	// A registered face afterwards still matches.
	st, _ = f.ctl.Sample(context.Background(), one(0.1, 0, 0))
	if st.Kind != Holding {
		t.Errorf("state = %v, want Holding", st.Kind)
	}
}

func TestMultipleFacesLeavesState(t *testing.T) {
	f := newFixture(t, monday0930, nil)
	dets := append(one(0.1, 0, 0), one(0.2, 0, 0)...)

	st, err := f.ctl.Sample(context.Background(), dets)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if st.Kind != Idle {
		t.Fatalf("state = %v, want Idle", st.Kind)
	}
	if u := f.rec.last(); u.Faces != 2 || u.Hint != HintMultipleFaces {
		t.Errorf("update = %+v", u)
	}
	f.clock.Advance(time.Minute)
	if got := len(f.day(t)); got != 0 {
		t.Errorf("events = %d, want 0", got)
	}
}

func TestNoActiveClass(t *testing.T) {
	sunday := time.Date(2024, time.January, 7, 9, 30, 0, 0, time.UTC)
	f := newFixture(t, sunday, nil)

	if _, err := f.ctl.Sample(context.Background(), one(0.1, 0, 0)); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	f.clock.Advance(5 * time.Second)
	if u := f.rec.last(); u.Outcome != HintNoActiveClass || u.Event != nil {
		t.Errorf("update = %+v, want no_active_class", u)
	}
	f.clock.Advance(2 * time.Second)
	if st := f.ctl.State(); st.Kind != Idle {
		t.Errorf("state = %v, want Idle", st.Kind)
	}
}

type countingDetector struct {
	mu    sync.Mutex
	calls int
	dets  []face.Detection
}

func (d *countingDetector) Detect(context.Context, []byte) ([]face.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.dets, nil
}

func TestFrameCadence(t *testing.T) {
	det := &countingDetector{}
	f := newFixture(t, monday0930, det)

	var sampled int
	for i := 0; i < 9; i++ {
		_, ok, err := f.ctl.OfferFrame(context.Background(), []byte("jpeg"))
		if err != nil {
			t.Fatalf("OfferFrame: %v", err)
		}
		if ok {
			sampled++
		}
	}
	if sampled != 3 || det.calls != 3 {
		t.Errorf("sampled %d frames, detector called %d times; want 3", sampled, det.calls)
	}
}

type blockingDetector struct {
	entered chan struct{}
	release chan struct{}
}

func (d *blockingDetector) Detect(ctx context.Context, _ []byte) ([]face.Detection, error) {
	close(d.entered)
	<-d.release
	return nil, nil
}

func TestBusySampleDropped(t *testing.T) {
	det := &blockingDetector{entered: make(chan struct{}), release: make(chan struct{})}
	f := newFixture(t, monday0930, det)
	f.ctl.cfg.SampleEvery = 1

	done := make(chan error, 1)
	go func() {
		_, _, err := f.ctl.OfferFrame(context.Background(), nil)
		done <- err
	}()
	<-det.entered

	if _, err := f.ctl.Sample(context.Background(), one(0.1, 0, 0)); !errors.Is(err, ErrSampleDropped) {
		t.Errorf("concurrent Sample error = %v, want ErrSampleDropped", err)
	}
	close(det.release)
	if err := <-done; err != nil {
		t.Fatalf("OfferFrame: %v", err)
	}
	if _, err := f.ctl.Sample(context.Background(), nil); err != nil {
		t.Errorf("Sample after release: %v", err)
	}
}

func TestCloseStopsTimers(t *testing.T) {
	f := newFixture(t, monday0930, nil)

	if _, err := f.ctl.Sample(context.Background(), one(0.1, 0, 0)); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	f.ctl.Close()
	f.clock.Advance(time.Minute)
	if got := len(f.day(t)); got != 0 {
		t.Errorf("closed session marked %d events", got)
	}
	if _, err := f.ctl.Sample(context.Background(), nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Sample after Close error = %v, want ErrClosed", err)
	}
	if err := f.ctl.Reset(); !errors.Is(err, ErrClosed) {
		t.Errorf("Reset after Close error = %v, want ErrClosed", err)
	}
}

func TestNoDetector(t *testing.T) {
	f := newFixture(t, monday0930, nil)
	if _, _, err := f.ctl.OfferFrame(context.Background(), nil); !errors.Is(err, ErrNoDetector) {
		t.Errorf("OfferFrame error = %v, want ErrNoDetector", err)
	}
}
