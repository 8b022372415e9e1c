package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bt-bridge/vision-assist/shared"
	"go.uber.org/zap"
)

type Trigger string

const (
	TriggerActivateCamera    Trigger = "activate_camera"
	TriggerRequestScan       Trigger = "request_scan"
	TriggerRequestListen     Trigger = "request_listen"
	TriggerRepeatDescription Trigger = "repeat_description"
	TriggerSpeakAllObjects   Trigger = "speak_all_objects"
	TriggerUtterance         Trigger = "utterance"
)

var errClosed = errors.New("controller closed")

// Controller owns one SessionState and serialises every trigger, capability
// completion and timeout through a single event loop started by Run.
//
// Trigger methods only enqueue work; they never block on capabilities and
// are safe to call from any goroutine, including event subscribers.
type Controller struct {
	logger    shared.LoggerAdapter
	opts      options
	producer  ScanProducer
	input     SpeechInput
	output    *outputPort
	announcer Announcer
	box       *mailbox

	// Loop-owned.
	ctx        context.Context
	state      *SessionState
	dirty      bool
	version    uint64
	eventSeq   uint64
	utterance  uint64
	utterText  string
	after      Phase
	next       func()
	listenOpen bool
	opCancel   context.CancelFunc

	snapMu sync.RWMutex
	snap   Snapshot

	subMu  sync.Mutex
	subs   map[uint64]chan Event
	nextID uint64

	mu      sync.Mutex
	running bool
	closed  bool
	cancel  context.CancelCauseFunc
	done    chan struct{}
}

// NewController wires the capabilities into a controller. A nil output or
// input is treated as unavailable on this host.
func NewController(logger shared.LoggerAdapter, producer ScanProducer, output SpeechOutput, input SpeechInput, opts ...Option) (*Controller, error) {
	if logger == nil {
		return nil, shared.ErrNoLogger
	}
	if producer == nil {
		return nil, shared.ErrNoScanProducer
	}
	if output == nil {
		output = unavailableOutput{}
	}
	if input == nil {
		input = unavailableInput{}
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	c := &Controller{
		logger:    logger,
		opts:      o,
		producer:  producer,
		input:     input,
		announcer: o.announcer,
		box:       newMailbox(),
		state:     NewSessionState(),
		subs:      make(map[uint64]chan Event),
		done:      make(chan struct{}),
	}
	c.output = newOutputPort(output, c.box.post)
	c.snap = c.state.snapshot(0)
	return c, nil
}

// Run processes triggers until ctx is done or Close is called. It returns
// nil after Close and the context's cause otherwise.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return shared.ErrControllerClosed
	}
	if c.running {
		c.mu.Unlock()
		return shared.ErrAlreadyRunning
	}
	c.running = true
	c.ctx, c.cancel = context.WithCancelCause(ctx)
	loopCtx := c.ctx
	c.mu.Unlock()
	defer close(c.done)

	c.logger.Info("controller started",
		zap.Bool("speech_output", c.output.available()),
		zap.Bool("speech_input", c.input.Available()),
	)
	if c.opts.greeting != "" {
		c.say(c.opts.greeting, PhaseIdle, nil)
		c.flush()
	}

	for {
		select {
		case <-loopCtx.Done():
			c.shutdown()
			cause := context.Cause(loopCtx)
			c.logger.Info("controller stopped", zap.NamedError("cause", cause))
			if errors.Is(cause, errClosed) {
				return nil
			}
			return cause
		case <-c.box.notify:
		}
		for _, msg := range c.box.take() {
			c.handle(msg)
		}
	}
}

// Close stops the loop, cancels in-flight capability calls and closes all
// subscriber channels. It is safe to call more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	running := c.running
	if c.cancel != nil {
		c.cancel(errClosed)
	}
	c.mu.Unlock()

	if running {
		<-c.done
	} else {
		c.closeSubscribers()
	}
	c.output.wait()
	return nil
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Snapshot returns the latest published state.
func (c *Controller) Snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	s := c.snap
	s.LastObjectSet = s.LastObjectSet.Clone()
	return s
}

// Subscribe returns a channel of controller events and a function that
// unsubscribes and closes it. Slow subscribers lose events rather than
// stall the loop.
func (c *Controller) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, c.opts.eventBuffer)
	c.subMu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.subMu.Unlock()
	return ch, func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if sub, ok := c.subs[id]; ok {
			delete(c.subs, id)
			close(sub)
		}
	}
}

func (c *Controller) ActivateCamera() error {
	return c.post(triggerMsg{trigger: TriggerActivateCamera})
}

func (c *Controller) RequestScan() error {
	return c.post(triggerMsg{trigger: TriggerRequestScan})
}

func (c *Controller) RequestListen() error {
	return c.post(triggerMsg{trigger: TriggerRequestListen})
}

func (c *Controller) RepeatDescription() error {
	return c.post(triggerMsg{trigger: TriggerRepeatDescription})
}

func (c *Controller) SpeakAllObjects() error {
	return c.post(triggerMsg{trigger: TriggerSpeakAllObjects})
}

// HandleUtterance interprets text as if it had been heard, without going
// through speech input.
func (c *Controller) HandleUtterance(text string) error {
	return c.post(triggerMsg{trigger: TriggerUtterance, text: text})
}

// Fire posts a trigger by kind. TriggerUtterance takes text.
func (c *Controller) Fire(t Trigger, text string) error {
	switch t {
	case TriggerActivateCamera, TriggerRequestScan, TriggerRequestListen,
		TriggerRepeatDescription, TriggerSpeakAllObjects, TriggerUtterance:
		return c.post(triggerMsg{trigger: t, text: text})
	}
	return fmt.Errorf("unknown trigger: %s", t)
}

func (c *Controller) post(msg triggerMsg) error {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return shared.ErrControllerClosed
	}
	c.box.post(msg)
	return nil
}

func (c *Controller) handle(msg any) {
	switch m := msg.(type) {
	case triggerMsg:
		c.onTrigger(m)
	case speakStartMsg:
		c.onSpeakStart(m)
	case speakEndMsg:
		c.onSpeakEnd(m)
	case scanDoneMsg:
		c.onScanDone(m)
	case listenDoneMsg:
		c.onListenDone(m)
	default:
		c.logger.Warn("unknown message", zap.String("type", fmt.Sprintf("%T", msg)))
	}
	c.flush()
}

// busy reports whether an exclusive operation owns the session: a scan or a
// listen, or the spoken cue that precedes one.
func (c *Controller) busy() bool {
	switch c.state.Phase {
	case PhaseScanning, PhaseListening, PhaseProcessingCommand:
		return true
	}
	return c.next != nil
}

func (c *Controller) onTrigger(m triggerMsg) {
	if c.busy() {
		c.refuse(m)
		return
	}
	c.logger.Debug("trigger", zap.String("trigger", string(m.trigger)), zap.String("phase", string(c.state.Phase)))
	switch m.trigger {
	case TriggerActivateCamera:
		c.activateCamera()
	case TriggerRequestScan:
		c.requestScan()
	case TriggerRequestListen:
		c.requestListen()
	case TriggerRepeatDescription:
		c.repeatDescription()
	case TriggerSpeakAllObjects:
		c.speakAllObjects()
	case TriggerUtterance:
		c.handleUtterance(m.text, m.internal)
	}
}

func (c *Controller) refuse(m triggerMsg) {
	reason := fmt.Errorf("%w: %s in progress", shared.ErrGuardRefusal, c.state.Phase)
	if c.next != nil {
		reason = fmt.Errorf("%w: operation starting", shared.ErrGuardRefusal)
	}
	c.logger.Info("trigger refused", zap.String("trigger", string(m.trigger)), zap.Error(reason))
	c.emit(Event{Type: EventTypeTriggerRefused, Text: string(m.trigger), Reason: reason.Error()})
	if c.opts.refusal == RefuseAnnounce {
		c.announce(MsgPleaseWait)
	}
}

func (c *Controller) activateCamera() {
	if !c.state.CameraActive {
		c.state.CameraActive = true
		c.dirty = true
	}
	c.setStatus(statusCameraActive)
	c.say(MsgCameraActivated, PhaseCameraActive, nil)
}

func (c *Controller) requestScan() {
	if !c.state.CameraActive {
		c.setStatus(statusNeedCamera)
		c.say(MsgActivateCamera, c.restPhase(), nil)
		return
	}
	c.setStatus(statusScanning)
	c.say(MsgScanning, PhaseIdle, c.startScan)
}

func (c *Controller) startScan() {
	c.setPhase(PhaseScanning)
	c.emit(Event{Type: EventTypeScanStart})
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.scanTimeout)
	c.opCancel = cancel
	go func() {
		defer cancel()
		set, err := c.producer.ProduceScan(ctx)
		if err != nil && errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, shared.ErrScanTimeout) {
			err = fmt.Errorf("%w: %w", shared.ErrScanTimeout, err)
		}
		c.box.post(scanDoneMsg{set: set, err: err})
	}()
}

func (c *Controller) onScanDone(m scanDoneMsg) {
	c.clearOp()
	if c.state.Phase != PhaseScanning {
		c.logger.Warn("scan result outside scanning phase", zap.String("phase", string(c.state.Phase)))
		return
	}
	if m.err != nil {
		c.logger.Error("scan failed", m.err)
		c.emit(Event{Type: EventTypeScanDone, Reason: m.err.Error()})
		c.setStatus(statusScanFailed)
		c.say(MsgScanFailed, PhaseIdle, nil)
		return
	}
	set := m.set.Clone()
	c.state.LastObjectSet = set
	c.state.LastDescription = Describe(set)
	c.dirty = true
	c.setStatus(statusScanComplete)
	c.logger.Info("scan complete", zap.Int("objects", set.Len()), zap.Bool("near", set.HasNear()))
	c.emit(Event{Type: EventTypeScanDone, Text: countObjects(set.Len())})
	c.say(ScanNarration(set), PhaseIdle, nil)
}

func (c *Controller) requestListen() {
	c.listenOpen = true
	if !c.input.Available() {
		err := fmt.Errorf("%w: speech input", shared.ErrCapabilityUnavailable)
		c.logger.Warn("listen requested without speech input")
		c.emit(Event{Type: EventTypeListenError, Reason: err.Error()})
		c.endListen()
		c.setStatus(statusNoVoice)
		c.say(MsgVoiceUnsupported, c.restPhase(), nil)
		return
	}
	c.setStatus(statusListening)
	c.say(MsgListening, PhaseIdle, c.startListen)
}

func (c *Controller) startListen() {
	c.setPhase(PhaseListening)
	c.emit(Event{Type: EventTypeListenStart})
	ctx, cancel := context.WithTimeout(c.ctx, c.opts.listenTimeout)
	c.opCancel = cancel
	go func() {
		defer cancel()
		text, err := c.input.Listen(ctx)
		c.box.post(listenDoneMsg{text: text, err: err})
	}()
}

func (c *Controller) onListenDone(m listenDoneMsg) {
	c.clearOp()
	if !c.listenOpen {
		c.logger.Warn("listen result without open listen")
		return
	}
	text := strings.TrimSpace(m.text)
	err := m.err
	if err == nil && text == "" {
		err = shared.ErrNoSpeech
	}
	if err != nil {
		if !errors.Is(err, shared.ErrRecognitionFailed) {
			err = fmt.Errorf("%w: %w", shared.ErrRecognitionFailed, err)
		}
		c.logger.Warn("listen failed", zap.Error(err))
		c.emit(Event{Type: EventTypeListenError, Reason: err.Error()})
		c.endListen()
		c.setStatus(statusReady)
		c.say(MsgNotUnderstood, PhaseIdle, nil)
		return
	}

	command := strings.ToLower(text)
	c.state.LastVoiceCommand = command
	c.dirty = true
	c.logger.Info("heard command", zap.String("command", command))
	c.emit(Event{Type: EventTypeListenResult, Text: command})
	c.setPhase(PhaseProcessingCommand)
	c.endListen()
	c.setStatus(statusReady)
	c.box.post(triggerMsg{trigger: TriggerUtterance, text: command, internal: true})
}

// endListen closes the listen opened by requestListen. It emits listen.end
// at most once per request.
func (c *Controller) endListen() {
	if !c.listenOpen {
		return
	}
	c.listenOpen = false
	c.emit(Event{Type: EventTypeListenEnd})
	if p := c.state.Phase; p == PhaseListening || p == PhaseProcessingCommand {
		c.setPhase(PhaseIdle)
	}
}

func (c *Controller) handleUtterance(text string, internal bool) {
	command := strings.ToLower(strings.TrimSpace(text))
	if !internal {
		c.state.LastVoiceCommand = command
		c.dirty = true
	}
	c.setStatus(statusProcessing + command)
	intent := Interpret(command, c.state.LastDescription != "", c.state.LastObjectSet.Len())
	c.logger.Debug("intent", zap.String("command", command), zap.String("intent", string(intent.Kind)))
	switch intent.Kind {
	case IntentScan:
		c.requestScan()
	case IntentDescribe:
		if intent.NothingToDescribe {
			c.say(MsgScanFirst, c.restPhase(), nil)
			return
		}
		c.say(DescribeNarration(c.state.LastDescription, c.state.LastObjectSet), c.restPhase(), nil)
	case IntentActivateCamera:
		c.activateCamera()
	case IntentReportObjectCount:
		c.say(fmt.Sprintf(msgObjectCountFormat, intent.Count), c.restPhase(), nil)
	case IntentHelp:
		c.say(MsgHelp, c.restPhase(), nil)
	default:
		c.say(MsgUnrecognized, c.restPhase(), nil)
	}
}

func (c *Controller) repeatDescription() {
	if c.state.LastDescription == "" {
		c.say(MsgScanFirst, c.restPhase(), nil)
		return
	}
	c.say(c.state.LastDescription, c.restPhase(), nil)
}

func (c *Controller) speakAllObjects() {
	if c.state.LastObjectSet.Len() == 0 {
		c.say(MsgNoObjects, c.restPhase(), nil)
		return
	}
	c.say(ObjectNarration(c.state.LastObjectSet), c.restPhase(), nil)
}

// say speaks text and then either runs next or settles in after. Without
// speech output the text is announced and the continuation runs at once.
// A new utterance replaces the pending one.
func (c *Controller) say(text string, after Phase, next func()) {
	if !c.output.available() {
		c.announce(text)
		if next != nil {
			next()
			return
		}
		c.setPhase(after)
		return
	}
	c.after = after
	c.next = next
	c.utterText = text
	c.utterance = c.output.speak(c.ctx, text)
	c.logger.Trace("utterance queued", zap.Uint64("id", c.utterance), zap.String("text", text))
}

// restPhase is where a plain utterance should leave the session: the phase
// the pending utterance would have returned to, or the current one.
func (c *Controller) restPhase() Phase {
	if c.utterance != 0 {
		return c.after
	}
	if c.state.Phase.resting() {
		return c.state.Phase
	}
	return PhaseIdle
}

func (c *Controller) onSpeakStart(m speakStartMsg) {
	if m.id != c.utterance {
		return
	}
	c.setPhase(PhaseSpeaking)
	c.emit(Event{Type: EventTypeSpeakStart, Text: c.utterText})
}

func (c *Controller) onSpeakEnd(m speakEndMsg) {
	if m.id != c.utterance {
		c.logger.Trace("stale utterance ended", zap.Uint64("id", m.id))
		return
	}
	c.utterance = 0
	ev := Event{Type: EventTypeSpeakEnd, Text: c.utterText}
	if m.err != nil && !errors.Is(m.err, context.Canceled) {
		c.logger.Error("speech output failed", m.err)
		ev.Reason = m.err.Error()
		c.emit(ev)
		c.announce(c.utterText)
	} else {
		c.emit(ev)
	}
	next := c.next
	c.next = nil
	if next != nil {
		next()
		return
	}
	c.setPhase(c.after)
}

func (c *Controller) announce(text string) {
	c.announcer.Announce(text)
	c.emit(Event{Type: EventTypeAnnounce, Text: text})
}

func (c *Controller) clearOp() {
	if c.opCancel != nil {
		c.opCancel()
		c.opCancel = nil
	}
}

func (c *Controller) shutdown() {
	c.clearOp()
	c.output.stop()
	c.next = nil
	c.utterance = 0
	if c.listenOpen {
		c.emit(Event{Type: EventTypeListenError, Reason: errClosed.Error()})
		c.endListen()
	}
	c.flush()
	c.closeSubscribers()
}

func (c *Controller) setPhase(p Phase) {
	if c.state.Phase == p {
		return
	}
	c.logger.Debug("phase changed", zap.String("from", string(c.state.Phase)), zap.String("to", string(p)))
	c.state.Phase = p
	c.publish()
}

func (c *Controller) setStatus(s string) {
	if c.state.StatusMessage != s {
		c.state.StatusMessage = s
		c.dirty = true
	}
}

func (c *Controller) flush() {
	if c.dirty {
		c.publish()
	}
}

func (c *Controller) publish() {
	c.dirty = false
	c.version++
	snap := c.state.snapshot(c.version)
	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()
	c.emit(Event{Type: EventTypeStateChanged, Snapshot: &snap})
}

func (c *Controller) emit(ev Event) {
	c.eventSeq++
	ev.Seq = c.eventSeq
	ev.Time = timeNow()
	ev.Phase = c.state.Phase
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			c.logger.Warn("subscriber too slow, event dropped",
				zap.Uint64("subscriber", id),
				zap.String("event", string(ev.Type)),
			)
		}
	}
}

func (c *Controller) closeSubscribers() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		delete(c.subs, id)
		close(ch)
	}
}
