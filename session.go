package assist

type Phase string

const (
	PhaseIdle              Phase = "idle"
	PhaseCameraActive      Phase = "camera_active"
	PhaseScanning          Phase = "scanning"
	PhaseListening         Phase = "listening"
	PhaseSpeaking          Phase = "speaking"
	PhaseProcessingCommand Phase = "processing_command"
)

func (p Phase) String() string { return string(p) }

// resting reports whether p is a phase the controller can sit in between
// operations.
func (p Phase) resting() bool {
	return p == PhaseIdle || p == PhaseCameraActive
}

// Status messages shown to the user.
const (
	statusReady        = "Ready"
	statusCameraActive = "Camera Active - Ready to Scan"
	statusScanning     = "Scanning environment..."
	statusScanComplete = "Scan complete"
	statusScanFailed   = "Scan failed"
	statusListening    = "Listening for command..."
	statusProcessing   = "Processing: "
	statusNoVoice      = "Voice recognition not supported"
	statusNeedCamera   = "Camera inactive - activate camera first"
)

// SessionState holds the interaction state of one session. It is owned by
// the controller's event loop and never shared; readers get a Snapshot.
type SessionState struct {
	CameraActive     bool
	Phase            Phase
	LastObjectSet    ObjectSet
	LastDescription  string
	LastVoiceCommand string
	StatusMessage    string
}

// NewSessionState initializes a new session state
func NewSessionState() *SessionState {
	return &SessionState{
		Phase:         PhaseIdle,
		StatusMessage: statusReady,
	}
}

// Snapshot is a read-only copy of the session state for presentation.
type Snapshot struct {
	Seq              uint64    `json:"seq" yaml:"seq"`
	CameraActive     bool      `json:"camera_active" yaml:"camera_active"`
	Phase            Phase     `json:"phase" yaml:"phase"`
	Speaking         bool      `json:"speaking" yaml:"speaking"`
	Listening        bool      `json:"listening" yaml:"listening"`
	Scanning         bool      `json:"scanning" yaml:"scanning"`
	LastObjectSet    ObjectSet `json:"last_object_set" yaml:"last_object_set"`
	LastDescription  string    `json:"last_description" yaml:"last_description"`
	LastVoiceCommand string    `json:"last_voice_command" yaml:"last_voice_command"`
	StatusMessage    string    `json:"status_message" yaml:"status_message"`
}

func (s *SessionState) snapshot(seq uint64) Snapshot {
	return Snapshot{
		Seq:              seq,
		CameraActive:     s.CameraActive,
		Phase:            s.Phase,
		Speaking:         s.Phase == PhaseSpeaking,
		Listening:        s.Phase == PhaseListening,
		Scanning:         s.Phase == PhaseScanning,
		LastObjectSet:    s.LastObjectSet.Clone(),
		LastDescription:  s.LastDescription,
		LastVoiceCommand: s.LastVoiceCommand,
		StatusMessage:    s.StatusMessage,
	}
}
