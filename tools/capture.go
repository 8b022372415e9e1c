package tools

import (
	"context"
	"errors"
	"io"

	"github.com/bt-bridge/vision-assist/shared"
)

// Capture pulls chunks of any size from read, reframes them for seg and
// returns the utterance once seg is done. An io.EOF from read ends the
// capture early with whatever speech was heard.
func Capture(ctx context.Context, seg *Segmenter, read func() ([]int16, error)) ([]int16, error) {
	frame := seg.cfg.FrameSize
	var pending []int16
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		chunk, err := read()
		if errors.Is(err, io.EOF) {
			if seg.State() == SegmentSpeech {
				return seg.Samples(), nil
			}
			return nil, shared.ErrNoSpeech
		}
		if err != nil {
			return nil, err
		}
		pending = append(pending, chunk...)
		for len(pending) >= frame {
			state, err := seg.Push(pending[:frame])
			pending = pending[frame:]
			if err != nil {
				return nil, err
			}
			if state == SegmentDone {
				return seg.Samples(), nil
			}
		}
	}
}
