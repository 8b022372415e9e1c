package shared

import "errors"

// Construction and lifecycle errors.
var (
	ErrNoLogger         = errors.New("no logger provided")
	ErrNoConfig         = errors.New("no config provided")
	ErrNoAPIKey         = errors.New("no API key provided")
	ErrNoPrinter        = errors.New("no printer provided")
	ErrNoScanProducer   = errors.New("no scan producer provided")
	ErrNoController     = errors.New("no controller provided")
	ErrAlreadyRunning   = errors.New("controller already running")
	ErrControllerClosed = errors.New("controller closed")
)

// Interaction errors. None of them is fatal: the controller turns each into
// a spoken or visible message and returns to a usable phase.
var (
	// ErrCapabilityUnavailable means the host has no speech output or input.
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	// ErrRecognitionFailed means listening produced no usable text.
	ErrRecognitionFailed = errors.New("recognition failed")
	// ErrGuardRefusal means a trigger arrived while its guard was unmet.
	ErrGuardRefusal = errors.New("trigger refused")
	// ErrSensorUnavailable is returned by scan producers that cannot reach their sensor.
	ErrSensorUnavailable = errors.New("sensor unavailable")
	// ErrScanTimeout is returned when a scan exceeds its deadline.
	ErrScanTimeout = errors.New("scan timed out")
	// ErrNoSpeech is returned by microphones that heard nothing before their timeout.
	ErrNoSpeech = errors.New("no speech detected")
)
