package assist

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

// activity counts capability calls in progress across all fakes.
type activity struct {
	mu     sync.Mutex
	active int
	max    int
}

func (a *activity) enter() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active++
	a.max = max(a.max, a.active)
}

func (a *activity) leave() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active--
}

func (a *activity) peak() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.max
}

type fakeOutput struct {
	act         *activity
	unavailable bool
	delay       time.Duration
	err         error

	mu        sync.Mutex
	spoken    []string
	cancelled int
}

func (f *fakeOutput) Available() bool { return !f.unavailable }

func (f *fakeOutput) Speak(ctx context.Context, text string) error {
	f.act.enter()
	defer f.act.leave()
	f.mu.Lock()
	f.spoken = append(f.spoken, text)
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			f.mu.Lock()
			f.cancelled++
			f.mu.Unlock()
			return ctx.Err()
		}
	}
	return f.err
}

func (f *fakeOutput) setDelay(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.delay = d
}

func (f *fakeOutput) Spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

type fakeInput struct {
	act         *activity
	unavailable bool
	listen      func(ctx context.Context) (string, error)
	calls       atomic.Int32
}

func (f *fakeInput) Available() bool { return !f.unavailable }

func (f *fakeInput) Listen(ctx context.Context) (string, error) {
	f.act.enter()
	defer f.act.leave()
	f.calls.Add(1)
	if f.listen == nil {
		return "", shared.ErrNoSpeech
	}
	return f.listen(ctx)
}

type fakeProducer struct {
	act     *activity
	produce func(ctx context.Context) (ObjectSet, error)
	calls   atomic.Int32
}

func (f *fakeProducer) ProduceScan(ctx context.Context) (ObjectSet, error) {
	f.act.enter()
	defer f.act.leave()
	f.calls.Add(1)
	if f.produce == nil {
		return testSet.Clone(), nil
	}
	return f.produce(ctx)
}

type fakeAnnouncer struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeAnnouncer) Announce(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
}

func (f *fakeAnnouncer) Texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

type harness struct {
	c      *Controller
	events <-chan Event
	runErr chan error
}

func newHarness(t *testing.T, prod ScanProducer, out SpeechOutput, in SpeechInput, opts ...Option) *harness {
	t.Helper()
	opts = append([]Option{WithEventBuffer(4096)}, opts...)
	c, err := NewController(shared.NewNopLogger(), prod, out, in, opts...)
	require.NoError(t, err)
	events, _ := c.Subscribe()
	h := &harness{c: c, events: events, runErr: make(chan error, 1)}
	go func() { h.runErr <- c.Run(context.Background()) }()
	t.Cleanup(func() { _ = c.Close() })
	return h
}

// until consumes events up to and including the first one matching pred.
func (h *harness) until(t *testing.T, pred func(Event) bool) []Event {
	t.Helper()
	var seen []Event
	timeout := time.After(waitTimeout)
	for {
		select {
		case ev, ok := <-h.events:
			if !ok {
				t.Fatalf("event stream closed after %d events", len(seen))
			}
			seen = append(seen, ev)
			if pred(ev) {
				return seen
			}
		case <-timeout:
			t.Fatalf("timed out after %d events", len(seen))
		}
	}
}

// drain consumes events until the stream is closed.
func (h *harness) drain(t *testing.T) []Event {
	t.Helper()
	var seen []Event
	timeout := time.After(waitTimeout)
	for {
		select {
		case ev, ok := <-h.events:
			if !ok {
				return seen
			}
			seen = append(seen, ev)
		case <-timeout:
			t.Fatalf("event stream not closed after %d events", len(seen))
		}
	}
}

func phaseIs(p Phase) func(Event) bool {
	return func(ev Event) bool {
		return ev.Type == EventTypeStateChanged && ev.Phase == p
	}
}

func spokeEnd(text string) func(Event) bool {
	return func(ev Event) bool {
		return ev.Type == EventTypeSpeakEnd && ev.Text == text
	}
}

func announced(text string) func(Event) bool {
	return func(ev Event) bool {
		return ev.Type == EventTypeAnnounce && ev.Text == text
	}
}

func countType(events []Event, typ EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

// phases lists distinct consecutive phases from state.changed events,
// starting at Idle and skipping Speaking.
func phases(events []Event) []Phase {
	out := []Phase{PhaseIdle}
	for _, ev := range events {
		if ev.Type != EventTypeStateChanged || ev.Phase == PhaseSpeaking {
			continue
		}
		if out[len(out)-1] != ev.Phase {
			out = append(out, ev.Phase)
		}
	}
	return out
}

func TestNewController(t *testing.T) {
	_, err := NewController(nil, &fakeProducer{}, nil, nil)
	assert.ErrorIs(t, err, shared.ErrNoLogger)

	_, err = NewController(shared.NewNopLogger(), nil, nil, nil)
	assert.ErrorIs(t, err, shared.ErrNoScanProducer)

	c, err := NewController(shared.NewNopLogger(), &fakeProducer{}, nil, nil)
	require.NoError(t, err)
	snap := c.Snapshot()
	assert.Equal(t, PhaseIdle, snap.Phase)
	assert.Equal(t, "Ready", snap.StatusMessage)
	assert.False(t, snap.CameraActive)
	assert.Empty(t, snap.LastObjectSet)
}

func TestControllerLifecycle(t *testing.T) {
	c, err := NewController(shared.NewNopLogger(), &fakeProducer{}, nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- c.Run(ctx) }()

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.running
	}, waitTimeout, time.Millisecond)
	assert.ErrorIs(t, c.Run(ctx), shared.ErrAlreadyRunning)

	cancel()
	select {
	case err := <-runErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.ErrorIs(t, c.RequestScan(), shared.ErrControllerClosed)
	assert.ErrorIs(t, c.Run(context.Background()), shared.ErrControllerClosed)
}

func TestControllerGreeting(t *testing.T) {
	out := &fakeOutput{}
	h := newHarness(t, &fakeProducer{}, out, nil, WithGreeting(MsgGreeting))
	h.until(t, spokeEnd(MsgGreeting))
	assert.Equal(t, []string{MsgGreeting}, out.Spoken())
}

func TestCameraThenScan(t *testing.T) {
	out := &fakeOutput{}
	prod := &fakeProducer{}
	h := newHarness(t, prod, out, nil)

	require.NoError(t, h.c.ActivateCamera())
	events := h.until(t, phaseIs(PhaseCameraActive))
	assert.True(t, h.c.Snapshot().CameraActive)
	assert.Equal(t, "Camera Active - Ready to Scan", h.c.Snapshot().StatusMessage)

	require.NoError(t, h.c.RequestScan())
	events = append(events, h.until(t, phaseIs(PhaseIdle))...)

	assert.Equal(t, []Phase{PhaseIdle, PhaseCameraActive, PhaseScanning, PhaseIdle}, phases(events))
	assert.Equal(t, []string{MsgCameraActivated, MsgScanning, ScanNarration(testSet)}, out.Spoken())
	assert.EqualValues(t, 1, prod.calls.Load())
	assert.Equal(t, 1, countType(events, EventTypeScanStart))
	assert.Equal(t, 1, countType(events, EventTypeScanDone))

	snap := h.c.Snapshot()
	assert.Equal(t, testSet, snap.LastObjectSet)
	assert.Equal(t, Describe(testSet), snap.LastDescription)
	assert.True(t, snap.CameraActive)
	assert.Equal(t, "Scan complete", snap.StatusMessage)
}

func TestScanWithoutCamera(t *testing.T) {
	out := &fakeOutput{}
	prod := &fakeProducer{}
	h := newHarness(t, prod, out, nil)

	require.NoError(t, h.c.RequestScan())
	events := h.until(t, spokeEnd(MsgActivateCamera))
	h.until(t, phaseIs(PhaseIdle))

	assert.Equal(t, []string{MsgActivateCamera}, out.Spoken())
	assert.Zero(t, prod.calls.Load())
	assert.Zero(t, countType(events, EventTypeScanStart))
	assert.Empty(t, h.c.Snapshot().LastDescription)
}

func TestScanFailureKeepsPreviousSet(t *testing.T) {
	out := &fakeOutput{}
	fail := atomic.Bool{}
	prod := &fakeProducer{}
	prod.produce = func(context.Context) (ObjectSet, error) {
		if fail.Load() {
			return nil, shared.ErrSensorUnavailable
		}
		return testSet.Clone(), nil
	}
	h := newHarness(t, prod, out, nil)

	require.NoError(t, h.c.ActivateCamera())
	h.until(t, phaseIs(PhaseCameraActive))
	require.NoError(t, h.c.RequestScan())
	h.until(t, spokeEnd(ScanNarration(testSet)))

	fail.Store(true)
	require.NoError(t, h.c.RequestScan())
	events := h.until(t, spokeEnd(MsgScanFailed))

	var done Event
	for _, ev := range events {
		if ev.Type == EventTypeScanDone {
			done = ev
		}
	}
	assert.Contains(t, done.Reason, shared.ErrSensorUnavailable.Error())
	h.until(t, phaseIs(PhaseIdle))
	snap := h.c.Snapshot()
	assert.Equal(t, testSet, snap.LastObjectSet)
	assert.Equal(t, "Scan failed", snap.StatusMessage)
}

func TestScanTimeout(t *testing.T) {
	out := &fakeOutput{}
	prod := &fakeProducer{produce: func(ctx context.Context) (ObjectSet, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	h := newHarness(t, prod, out, nil, WithScanTimeout(20*time.Millisecond))

	require.NoError(t, h.c.ActivateCamera())
	h.until(t, phaseIs(PhaseCameraActive))
	require.NoError(t, h.c.RequestScan())
	events := h.until(t, func(ev Event) bool { return ev.Type == EventTypeScanDone })
	assert.Contains(t, events[len(events)-1].Reason, shared.ErrScanTimeout.Error())
	h.until(t, spokeEnd(MsgScanFailed))
}

func TestUtterances(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		expected  string
	}{
		{
			name:      "Describe before any scan",
			utterance: "what is in front of me",
			expected:  MsgScanFirst,
		},
		{
			name:      "Help",
			utterance: "help me please",
			expected:  MsgHelp,
		},
		{
			name:      "Unrecognized",
			utterance: "good morning",
			expected:  MsgUnrecognized,
		},
		{
			name:      "Scan keyword without camera",
			utterance: "what do you see",
			expected:  MsgActivateCamera,
		},
		{
			name:      "Objects before any scan",
			utterance: "objects",
			expected:  MsgUnrecognized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &fakeOutput{}
			h := newHarness(t, &fakeProducer{}, out, nil)
			require.NoError(t, h.c.HandleUtterance(tt.utterance))
			h.until(t, spokeEnd(tt.expected))
			assert.Equal(t, []string{tt.expected}, out.Spoken())
			assert.Equal(t, tt.utterance, h.c.Snapshot().LastVoiceCommand)
		})
	}
}

func TestUtterancesAfterScan(t *testing.T) {
	out := &fakeOutput{}
	h := newHarness(t, &fakeProducer{}, out, nil)

	require.NoError(t, h.c.ActivateCamera())
	h.until(t, phaseIs(PhaseCameraActive))
	require.NoError(t, h.c.RequestScan())
	h.until(t, phaseIs(PhaseIdle))

	require.NoError(t, h.c.HandleUtterance("Describe it"))
	h.until(t, spokeEnd(DescribeNarration(Describe(testSet), testSet)))

	require.NoError(t, h.c.HandleUtterance("how many objects"))
	h.until(t, spokeEnd(fmt.Sprintf(msgObjectCountFormat, 2)))

	require.NoError(t, h.c.RepeatDescription())
	h.until(t, spokeEnd(Describe(testSet)))

	require.NoError(t, h.c.SpeakAllObjects())
	h.until(t, spokeEnd(ObjectNarration(testSet)))
	h.until(t, phaseIs(PhaseIdle))
}

func TestRepeatAndObjectsBeforeScan(t *testing.T) {
	out := &fakeOutput{}
	h := newHarness(t, &fakeProducer{}, out, nil)

	require.NoError(t, h.c.RepeatDescription())
	h.until(t, spokeEnd(MsgScanFirst))
	require.NoError(t, h.c.SpeakAllObjects())
	h.until(t, spokeEnd(MsgNoObjects))
	assert.Equal(t, []string{MsgScanFirst, MsgNoObjects}, out.Spoken())
}

func TestListenUnavailable(t *testing.T) {
	out := &fakeOutput{}
	in := &fakeInput{unavailable: true}
	h := newHarness(t, &fakeProducer{}, out, in)

	require.NoError(t, h.c.ActivateCamera())
	h.until(t, phaseIs(PhaseCameraActive))
	require.NoError(t, h.c.RequestListen())
	events := h.until(t, spokeEnd(MsgVoiceUnsupported))
	events = append(events, h.until(t, phaseIs(PhaseCameraActive))...)

	assert.Equal(t, []string{MsgCameraActivated, MsgVoiceUnsupported}, out.Spoken())
	assert.Zero(t, in.calls.Load())
	assert.Zero(t, countType(events, EventTypeListenStart))
	assert.Equal(t, 1, countType(events, EventTypeListenError))
	assert.Equal(t, 1, countType(events, EventTypeListenEnd))
	assert.NotContains(t, phases(events), PhaseListening)
	assert.Equal(t, "Voice recognition not supported", h.c.Snapshot().StatusMessage)
}

func TestListenUnavailableWithoutOutput(t *testing.T) {
	ann := &fakeAnnouncer{}
	h := newHarness(t, &fakeProducer{}, nil, nil, WithAnnouncer(ann))

	require.NoError(t, h.c.RequestListen())
	events := h.until(t, announced(MsgVoiceUnsupported))
	events = append(events, h.until(t, func(ev Event) bool { return ev.Type == EventTypeStateChanged })...)

	assert.Equal(t, []string{MsgVoiceUnsupported}, ann.Texts())
	assert.Equal(t, 1, countType(events, EventTypeListenEnd))
	assert.Zero(t, countType(events, EventTypeSpeakStart))
}

func TestListenCommand(t *testing.T) {
	out := &fakeOutput{}
	prod := &fakeProducer{}
	in := &fakeInput{listen: func(context.Context) (string, error) {
		return "  Scan Please ", nil
	}}
	h := newHarness(t, prod, out, in)

	require.NoError(t, h.c.ActivateCamera())
	h.until(t, phaseIs(PhaseCameraActive))
	require.NoError(t, h.c.RequestListen())
	events := h.until(t, spokeEnd(ScanNarration(testSet)))

	assert.Equal(t, []string{MsgCameraActivated, MsgListening, MsgScanning, ScanNarration(testSet)}, out.Spoken())
	assert.Equal(t, 1, countType(events, EventTypeListenStart))
	assert.Equal(t, 1, countType(events, EventTypeListenResult))
	assert.Equal(t, 1, countType(events, EventTypeListenEnd))
	assert.Zero(t, countType(events, EventTypeListenError))
	assert.Equal(t,
		[]Phase{PhaseIdle, PhaseCameraActive, PhaseListening, PhaseProcessingCommand, PhaseIdle, PhaseScanning},
		phases(events),
	)
	assert.Equal(t, "scan please", h.c.Snapshot().LastVoiceCommand)
	assert.EqualValues(t, 1, in.calls.Load())
	assert.EqualValues(t, 1, prod.calls.Load())
}

func TestListenFailure(t *testing.T) {
	tests := []struct {
		name   string
		listen func(context.Context) (string, error)
	}{
		{
			name:   "Recognizer error",
			listen: func(context.Context) (string, error) { return "", errors.New("network down") },
		},
		{
			name:   "Empty transcript",
			listen: func(context.Context) (string, error) { return "   ", nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &fakeOutput{}
			h := newHarness(t, &fakeProducer{}, out, &fakeInput{listen: tt.listen})

			require.NoError(t, h.c.RequestListen())
			events := h.until(t, spokeEnd(MsgNotUnderstood))
			h.until(t, phaseIs(PhaseIdle))

			assert.Equal(t, 1, countType(events, EventTypeListenError))
			assert.Equal(t, 1, countType(events, EventTypeListenEnd))
			assert.Zero(t, countType(events, EventTypeListenResult))
			for _, ev := range events {
				if ev.Type == EventTypeListenError {
					assert.Contains(t, ev.Reason, shared.ErrRecognitionFailed.Error())
				}
			}
			assert.Empty(t, h.c.Snapshot().LastVoiceCommand)
		})
	}
}

func TestBusyRefusal(t *testing.T) {
	release := make(chan struct{})
	out := &fakeOutput{}
	in := &fakeInput{}
	ann := &fakeAnnouncer{}
	prod := &fakeProducer{produce: func(ctx context.Context) (ObjectSet, error) {
		select {
		case <-release:
			return testSet.Clone(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	h := newHarness(t, prod, out, in, WithAnnouncer(ann), WithRefusalPolicy(RefuseAnnounce))

	require.NoError(t, h.c.ActivateCamera())
	h.until(t, phaseIs(PhaseCameraActive))
	require.NoError(t, h.c.RequestScan())
	h.until(t, phaseIs(PhaseScanning))

	require.NoError(t, h.c.RequestListen())
	require.NoError(t, h.c.RequestScan())
	require.NoError(t, h.c.HandleUtterance("help"))
	refused := h.until(t, func(ev Event) bool {
		return ev.Type == EventTypeTriggerRefused && ev.Text == string(TriggerUtterance)
	})
	assert.Equal(t, 3, countType(refused, EventTypeTriggerRefused))
	assert.Equal(t, []string{MsgPleaseWait, MsgPleaseWait, MsgPleaseWait}, ann.Texts())
	assert.Equal(t, PhaseScanning, h.c.Snapshot().Phase)

	close(release)
	h.until(t, spokeEnd(ScanNarration(testSet)))
	h.until(t, phaseIs(PhaseIdle))
	assert.Zero(t, in.calls.Load())
	assert.EqualValues(t, 1, prod.calls.Load())
	assert.Equal(t, []string{MsgCameraActivated, MsgScanning, ScanNarration(testSet)}, out.Spoken())
}

func TestSpeechPreemption(t *testing.T) {
	out := &fakeOutput{delay: time.Second}
	h := newHarness(t, &fakeProducer{}, out, nil)

	require.NoError(t, h.c.ActivateCamera())
	h.until(t, func(ev Event) bool { return ev.Type == EventTypeSpeakStart })
	out.setDelay(0)
	require.NoError(t, h.c.HandleUtterance("help"))
	events := h.until(t, phaseIs(PhaseCameraActive))

	assert.Equal(t, []string{MsgCameraActivated, MsgHelp}, out.Spoken())
	assert.Equal(t, 1, countType(events, EventTypeSpeakEnd))
	out.mu.Lock()
	assert.Equal(t, 1, out.cancelled)
	out.mu.Unlock()
}

func TestSpeechFailureFallsBackToAnnouncer(t *testing.T) {
	out := &fakeOutput{err: errors.New("audio device lost")}
	ann := &fakeAnnouncer{}
	h := newHarness(t, &fakeProducer{}, out, nil, WithAnnouncer(ann))

	require.NoError(t, h.c.ActivateCamera())
	events := h.until(t, phaseIs(PhaseCameraActive))
	assert.Equal(t, []string{MsgCameraActivated}, ann.Texts())
	assert.Equal(t, 1, countType(events, EventTypeAnnounce))
}

func TestNoSpeechOutput(t *testing.T) {
	ann := &fakeAnnouncer{}
	prod := &fakeProducer{}
	h := newHarness(t, prod, nil, nil, WithAnnouncer(ann))

	require.NoError(t, h.c.ActivateCamera())
	require.NoError(t, h.c.RequestScan())
	events := h.until(t, announced(ScanNarration(testSet)))
	h.until(t, phaseIs(PhaseIdle))

	assert.Equal(t, []string{MsgCameraActivated, MsgScanning, ScanNarration(testSet)}, ann.Texts())
	assert.Zero(t, countType(events, EventTypeSpeakStart))
	assert.EqualValues(t, 1, prod.calls.Load())
}

func TestCloseDuringListen(t *testing.T) {
	out := &fakeOutput{}
	in := &fakeInput{listen: func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	h := newHarness(t, &fakeProducer{}, out, in)

	require.NoError(t, h.c.RequestListen())
	h.until(t, phaseIs(PhaseListening))
	require.NoError(t, h.c.Close())

	events := h.drain(t)
	assert.Equal(t, 1, countType(events, EventTypeListenEnd))
	assert.Equal(t, PhaseIdle, h.c.Snapshot().Phase)
	select {
	case err := <-h.runErr:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("Run did not return")
	}
}

func TestSubscriberUnsubscribe(t *testing.T) {
	c, err := NewController(shared.NewNopLogger(), &fakeProducer{}, nil, nil)
	require.NoError(t, err)
	ch, unsubscribe := c.Subscribe()
	unsubscribe()
	unsubscribe()
	_, ok := <-ch
	assert.False(t, ok)
	require.NoError(t, c.Close())
}

func TestFire(t *testing.T) {
	out := &fakeOutput{}
	h := newHarness(t, &fakeProducer{}, out, nil)
	assert.Error(t, h.c.Fire("dance", ""))
	require.NoError(t, h.c.Fire(TriggerUtterance, "help"))
	h.until(t, spokeEnd(MsgHelp))
}

// Random trigger storms never overlap speech, listening and scanning.
func TestCapabilitiesNeverOverlap(t *testing.T) {
	act := &activity{}
	out := &fakeOutput{act: act, delay: 2 * time.Millisecond}
	in := &fakeInput{act: act, listen: func(ctx context.Context) (string, error) {
		select {
		case <-time.After(2 * time.Millisecond):
			return "how many objects", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}}
	prod := &fakeProducer{act: act, produce: func(ctx context.Context) (ObjectSet, error) {
		select {
		case <-time.After(3 * time.Millisecond):
			return testSet.Clone(), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	h := newHarness(t, prod, out, in)

	r := rand.New(rand.NewPCG(1, 2))
	triggers := []func() error{
		h.c.ActivateCamera,
		h.c.RequestScan,
		h.c.RequestListen,
		h.c.RepeatDescription,
		h.c.SpeakAllObjects,
		func() error { return h.c.HandleUtterance("scan") },
		func() error { return h.c.HandleUtterance("describe") },
	}
	for range 200 {
		require.NoError(t, triggers[r.IntN(len(triggers))]())
		time.Sleep(time.Duration(r.IntN(1500)) * time.Microsecond)
	}
	require.NoError(t, h.c.Close())
	h.drain(t)

	assert.LessOrEqual(t, act.peak(), 1)
	assert.Positive(t, prod.calls.Load())
}
