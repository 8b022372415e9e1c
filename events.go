package assist

import (
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

var timeNow = time.Now

type EventType string

const (
	EventTypeStateChanged   EventType = "state.changed"
	EventTypeSpeakStart     EventType = "speak.start"
	EventTypeSpeakEnd       EventType = "speak.end"
	EventTypeListenStart    EventType = "listen.start"
	EventTypeListenResult   EventType = "listen.result"
	EventTypeListenError    EventType = "listen.error"
	EventTypeListenEnd      EventType = "listen.end"
	EventTypeScanStart      EventType = "scan.start"
	EventTypeScanDone       EventType = "scan.done"
	EventTypeTriggerRefused EventType = "trigger.refused"
	EventTypeAnnounce       EventType = "announce"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeStateChanged, EventTypeSpeakStart, EventTypeSpeakEnd,
		EventTypeListenStart, EventTypeListenResult, EventTypeListenError, EventTypeListenEnd,
		EventTypeScanStart, EventTypeScanDone, EventTypeTriggerRefused, EventTypeAnnounce:
		return true
	}
	return false
}

// Event is what observers receive from the controller. Snapshot is set on
// state.changed events only.
type Event struct {
	Seq      uint64
	Type     EventType
	Time     time.Time
	Phase    Phase
	Text     string
	Reason   string
	Snapshot *Snapshot
}

type eventWire struct {
	Seq      uint64    `json:"seq" yaml:"seq"`
	Type     EventType `json:"type" yaml:"type"`
	TimeMs   int64     `json:"time_ms" yaml:"time_ms"`
	Phase    Phase     `json:"phase" yaml:"phase"`
	Text     string    `json:"text,omitempty" yaml:"text,omitempty"`
	Reason   string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Snapshot *Snapshot `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
}

func (e *Event) wire() (*eventWire, error) {
	if e.Type == "" {
		return nil, errors.New("Type is empty")
	}
	if e.Type == EventTypeStateChanged && e.Snapshot == nil {
		return nil, errors.New("Snapshot is nil")
	}
	return &eventWire{
		Seq:      e.Seq,
		Type:     e.Type,
		TimeMs:   e.Time.UnixMilli(),
		Phase:    e.Phase,
		Text:     e.Text,
		Reason:   e.Reason,
		Snapshot: e.Snapshot,
	}, nil
}

func (e *Event) fromWire(w *eventWire) error {
	if !w.Type.Valid() {
		return fmt.Errorf("unknown event type: %s", w.Type)
	}
	if w.Type == EventTypeStateChanged && w.Snapshot == nil {
		return errors.New("missing snapshot")
	}
	*e = Event{
		Seq:      w.Seq,
		Type:     w.Type,
		Time:     time.UnixMilli(w.TimeMs),
		Phase:    w.Phase,
		Text:     w.Text,
		Reason:   w.Reason,
		Snapshot: w.Snapshot,
	}
	return nil
}

func (e *Event) MarshalJSON() ([]byte, error) {
	w, err := e.wire()
	if err != nil {
		return nil, err
	}
	return sonic.Marshal(w)
}

func (e *Event) UnmarshalJSON(data []byte) error {
	w := new(eventWire)
	if err := sonic.Unmarshal(data, w); err != nil {
		return err
	}
	return e.fromWire(w)
}

func (e *Event) MarshalYAML() ([]byte, error) {
	w, err := e.wire()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(w)
}

func (e *Event) UnmarshalYAML(data []byte) error {
	w := new(eventWire)
	if err := yaml.Unmarshal(data, w); err != nil {
		return err
	}
	return e.fromWire(w)
}
