package tools

import (
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

// IntBuffer wraps mono 16-bit samples for go-audio.
func IntBuffer(samples []int16, sampleRate int) *audio.IntBuffer {
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
}

// EncodeWAV writes samples as a mono 16-bit WAV file named name on fs and
// returns its bytes. The file is removed afterwards.
func EncodeWAV(fs afero.Fs, name string, samples []int16, sampleRate int) ([]byte, error) {
	f, err := fs.Create(name)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	defer func() { _ = fs.Remove(name) }()

	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	if err := enc.Write(IntBuffer(samples, sampleRate)); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("encoding wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("finishing wav: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return afero.ReadFile(fs, name)
}

// DecodeWAV reads a 16-bit PCM WAV and returns its first channel.
func DecodeWAV(r io.ReadSeeker) ([]int16, int, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, 0, errors.New("not a valid wav file")
	}
	if dec.BitDepth != 16 {
		return nil, 0, fmt.Errorf("unsupported bit depth %d", dec.BitDepth)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("reading pcm: %w", err)
	}
	channels := max(buf.Format.NumChannels, 1)
	out := make([]int16, 0, len(buf.Data)/channels)
	for i := 0; i < len(buf.Data); i += channels {
		out = append(out, int16(buf.Data[i]))
	}
	return out, buf.Format.SampleRate, nil
}
