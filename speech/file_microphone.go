package speech

import (
	"context"
	"fmt"
	"time"

	"github.com/bt-bridge/vision-assist/shared"
	"github.com/bt-bridge/vision-assist/tools"
	"github.com/spf13/afero"
)

// FileMicrophone replays a recorded WAV file as if it had been spoken, in
// real time. It stands in for a microphone on headless hosts.
type FileMicrophone struct {
	fs       afero.Fs
	path     string
	realtime bool
}

var _ Microphone = (*FileMicrophone)(nil)

func NewFileMicrophone(fs afero.Fs, path string, realtime bool) *FileMicrophone {
	return &FileMicrophone{fs: fs, path: path, realtime: realtime}
}

func (m *FileMicrophone) Available() bool {
	if m.fs == nil || m.path == "" {
		return false
	}
	ok, err := afero.Exists(m.fs, m.path)
	return err == nil && ok
}

func (m *FileMicrophone) Record(ctx context.Context) (Clip, error) {
	f, err := m.fs.Open(m.path)
	if err != nil {
		return Clip{}, fmt.Errorf("opening %s: %w", m.path, err)
	}
	defer func() { _ = f.Close() }()
	samples, rate, err := tools.DecodeWAV(f)
	if err != nil {
		return Clip{}, fmt.Errorf("decoding %s: %w", m.path, err)
	}
	if len(samples) == 0 {
		return Clip{}, shared.ErrNoSpeech
	}
	clip := Clip{Samples: samples, SampleRate: rate}
	if m.realtime {
		timer := time.NewTimer(clip.Duration())
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		case <-timer.C:
		}
	}
	return clip, nil
}
