package assist

// Spoken phrases.
const (
	MsgGreeting          = "Smart Vision Assistant ready. Tap Start Camera, then tap Scan to analyze your surroundings. You can also use voice commands by tapping the microphone button."
	MsgCameraActivated   = "Camera activated. Ready to scan your surroundings."
	MsgActivateCamera    = "Please activate camera first"
	MsgScanning          = "Scanning your surroundings"
	MsgScanFailed        = "Scan failed. Please try again."
	MsgListening         = "Listening"
	MsgNotUnderstood     = "Could not understand command. Please try again."
	MsgVoiceUnsupported  = "Voice recognition not supported. Please use the buttons instead."
	MsgScanFirst         = "Please scan first"
	MsgNoObjects         = "No objects detected yet. Please scan first."
	MsgHelp              = "Available commands: Say scan to analyze surroundings. Say describe to repeat last description. Say start camera to activate camera. Say objects to know how many objects detected."
	MsgUnrecognized      = "Command not recognized. Say help for available commands."
	MsgPleaseWait        = "Please wait, I am still busy."
	msgObjectCountFormat = "There are %d objects detected"
)
