package agents

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	assist "github.com/bt-bridge/vision-assist"
	"github.com/bt-bridge/vision-assist/scan"
	"github.com/bt-bridge/vision-assist/server"
	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/speech"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

const keyHelp = `c  start camera      s  scan          l  listen
r  repeat            o  objects       p  print state
> text  say a command as text         h  help    q  quit`

// Capabilities are the speech ports built for this host. A nil field means
// the host cannot provide it.
type Capabilities struct {
	Output assist.SpeechOutput
	Input  assist.SpeechInput
}

type CLIState struct {
	lastStatus string
	lastPhase  assist.Phase
	lastSet    string
}

func NewCLIState() *CLIState {
	return &CLIState{}
}

// CLIAgent runs one assistant session on a terminal: keys on stdin fire
// triggers and every state change is printed.
type CLIAgent struct {
	logger  shared.LoggerAdapter
	printer *shared.Printer
	ctl     *assist.Controller
	state   *CLIState
	cancel  context.CancelFunc
	done    chan struct{}

	mu sync.Mutex
}

func (a *CLIAgent) Spawn(
	ctx context.Context,
	logger shared.LoggerAdapter,
	cfg *shared.Config,
	caps Capabilities,
	printer *shared.Printer,
	in io.Reader,
) error {
	if logger == nil {
		return shared.ErrNoLogger
	}
	if cfg == nil {
		return shared.ErrNoConfig
	}
	if printer == nil {
		return shared.ErrNoPrinter
	}
	a.logger = logger
	a.printer = printer
	a.state = NewCLIState()
	a.done = make(chan struct{})
	a.logger.Info("spawning CLI agent")
	a.println("🤖 Spawning vision assistant...\n", 0)

	a.println("📋 Config\n", 0)
	yamlBytes, err := yaml.MarshalWithOptions(redacted(cfg), yaml.UseJSONMarshaler())
	if err != nil {
		a.logger.Error("marshaling config to yaml", err)
		return err
	}
	if err := a.printer.Write(string(yamlBytes), 1); err != nil {
		a.logger.Error("printing config", err)
		return err
	}
	a.println("", 0)

	opts, err := controllerOptions(cfg)
	if err != nil {
		return err
	}
	announcer, err := speech.NewPrinterAnnouncer(a.logger, a.printer)
	if err != nil {
		return err
	}
	opts = append(opts, assist.WithAnnouncer(announcer))

	producer, err := scan.NewRandomProducer(a.logger, shared.Millis(cfg.Scan.LatencyMs), cfg.Scan.Seed)
	if err != nil {
		a.logger.Error("creating scan producer", err)
		return err
	}
	a.reportCapabilities(caps)
	a.ctl, err = assist.NewController(a.logger.With(zap.String("component", "controller")), producer, caps.Output, caps.Input, opts...)
	if err != nil {
		a.logger.Error("creating controller", err)
		return err
	}

	var srv *server.Server
	if cfg.Server.Enabled {
		if srv, err = server.New(a.logger, a.ctl); err != nil {
			return err
		}
	}

	ctx, a.cancel = context.WithCancel(ctx)
	events, unsubscribe := a.ctl.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.render(events)
	}()
	if srv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				a.logger.Error("http server", err)
			}
		}()
		a.println("🌐 Accepting triggers on http://"+cfg.Server.Addr, 0)
	}
	if in != nil {
		go a.readKeys(in)
	}
	a.println(keyHelp+"\n", 0)

	go func() {
		defer close(a.done)
		if err := a.ctl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error("controller stopped", err)
		}
		a.cancel()
		unsubscribe()
		wg.Wait()
		a.println("👋 Session ended.", 0)
	}()
	return nil
}

func (a *CLIAgent) reportCapabilities(caps Capabilities) {
	if caps.Output == nil || !caps.Output.Available() {
		a.println("🔇 Speech output unavailable, messages will be shown here.", 0)
	} else {
		a.println("🔈 Speech output ready.", 0)
	}
	if caps.Input == nil || !caps.Input.Available() {
		a.println("🎤 Voice commands unavailable, use the keys below.\n", 0)
	} else {
		a.println("🎤 Voice commands ready.\n", 0)
	}
}

func (a *CLIAgent) readKeys(in io.Reader) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, ok := parseCommand(scanner.Text())
		if !ok {
			a.println("❓ Unknown key, h for help.", 0)
			continue
		}
		switch {
		case cmd.quit:
			a.logger.Info("quit requested")
			_ = a.Close()
			return
		case cmd.help:
			a.println(keyHelp, 0)
		case cmd.state:
			a.printState()
		case cmd.trigger != "":
			if err := a.ctl.Fire(cmd.trigger, cmd.text); err != nil {
				a.logger.Error("firing trigger", err)
				return
			}
		}
	}
	if err := scanner.Err(); err != nil {
		a.logger.Error("reading input", err)
	}
}

func (a *CLIAgent) render(events <-chan assist.Event) {
	for ev := range events {
		for _, line := range a.state.lines(ev) {
			a.println(line, 0)
		}
	}
}

func (a *CLIAgent) printState() {
	snap := a.ctl.Snapshot()
	out, err := yaml.Marshal(snap)
	if err != nil {
		a.logger.Error("marshaling state", err)
		return
	}
	if err := a.printer.Block(0, "📟 State", strings.Split(strings.TrimRight(string(out), "\n"), "\n")...); err != nil {
		a.logger.Error("printing state", err)
	}
}

func (a *CLIAgent) println(s string, ind int) {
	if err := a.printer.Writeln(s, ind); err != nil {
		a.logger.Error("printing message", err)
	}
}

// Done is closed once the session has ended.
func (a *CLIAgent) Done() <-chan struct{} {
	return a.done
}

func (a *CLIAgent) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.ctl == nil {
		return nil
	}
	return a.ctl.Close()
}

// lines renders one event for the terminal. It returns nothing for events
// that have already been shown some other way.
func (s *CLIState) lines(ev assist.Event) []string {
	switch ev.Type {
	case assist.EventTypeStateChanged:
		snap := ev.Snapshot
		if snap == nil {
			return nil
		}
		var out []string
		if snap.StatusMessage != s.lastStatus || snap.Phase != s.lastPhase {
			s.lastStatus, s.lastPhase = snap.StatusMessage, snap.Phase
			out = append(out, fmt.Sprintf("📟 [%s] %s", snap.Phase, snap.StatusMessage))
		}
		if set := objectLines(snap.LastObjectSet); strings.Join(set, "\n") != s.lastSet && len(set) > 0 {
			s.lastSet = strings.Join(set, "\n")
			out = append(out, "👁  "+snap.LastDescription)
			out = append(out, set...)
		}
		return out
	case assist.EventTypeSpeakStart:
		return []string{"🔊 " + ev.Text}
	case assist.EventTypeListenResult:
		return []string{fmt.Sprintf("🗣  heard %q", ev.Text)}
	case assist.EventTypeListenError, assist.EventTypeScanDone:
		if ev.Reason != "" {
			return []string{"⚠️  " + ev.Reason}
		}
	case assist.EventTypeTriggerRefused:
		return []string{"⏳ busy, ignored " + ev.Text}
	}
	return nil
}

func objectLines(set assist.ObjectSet) []string {
	out := make([]string, 0, len(set))
	for i, o := range set {
		out = append(out, fmt.Sprintf("   %d. %s, %s, %s", i+1, o.Name, o.Position, o.Distance))
	}
	return out
}

type command struct {
	trigger assist.Trigger
	text    string
	help    bool
	state   bool
	quit    bool
}

func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if text, ok := strings.CutPrefix(line, ">"); ok {
		text = strings.TrimSpace(text)
		if text == "" {
			return command{}, false
		}
		return command{trigger: assist.TriggerUtterance, text: text}, true
	}
	switch strings.ToLower(line) {
	case "c":
		return command{trigger: assist.TriggerActivateCamera}, true
	case "s":
		return command{trigger: assist.TriggerRequestScan}, true
	case "l":
		return command{trigger: assist.TriggerRequestListen}, true
	case "r":
		return command{trigger: assist.TriggerRepeatDescription}, true
	case "o":
		return command{trigger: assist.TriggerSpeakAllObjects}, true
	case "p":
		return command{state: true}, true
	case "h", "?":
		return command{help: true}, true
	case "q", "quit", "exit":
		return command{quit: true}, true
	}
	return command{}, false
}

func controllerOptions(cfg *shared.Config) ([]assist.Option, error) {
	opts := []assist.Option{
		assist.WithScanTimeout(shared.Millis(cfg.Scan.TimeoutMs)),
		assist.WithListenTimeout(shared.Millis(cfg.Listen.TimeoutMs)),
		assist.WithEventBuffer(cfg.Controller.EventBuffer),
	}
	if cfg.Controller.Greeting {
		opts = append(opts, assist.WithGreeting(assist.MsgGreeting))
	}
	switch cfg.Controller.RefusalPolicy {
	case shared.RefusalSilent:
		opts = append(opts, assist.WithRefusalPolicy(assist.RefuseSilently))
	case shared.RefusalAnnounce:
		opts = append(opts, assist.WithRefusalPolicy(assist.RefuseAnnounce))
	default:
		return nil, fmt.Errorf("unknown refusal policy %q", cfg.Controller.RefusalPolicy)
	}
	return opts, nil
}

func redacted(cfg *shared.Config) *shared.Config {
	c := *cfg
	if key := c.OpenAI.APIKey; len(key) > 10 {
		c.OpenAI.APIKey = key[:10] + "..."
	} else if key != "" {
		c.OpenAI.APIKey = "***"
	}
	return &c
}
