package tools

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// FluxVAD measures spectral flux between consecutive frames. A jump in flux
// marks the onset of speech.
type FluxVAD struct {
	size   int
	window []float64
	prev   []float64
}

func NewFluxVAD(frameSize int) *FluxVAD {
	return &FluxVAD{
		size:   frameSize,
		window: window.Hann(frameSize),
	}
}

// Flux returns the summed positive change in magnitude spectrum since the
// previous frame. The first frame after a reset yields zero. Frames shorter than the configured size are zero padded.
func (v *FluxVAD) Flux(frame []int16) float64 {
	x := make([]float64, v.size)
	for i := 0; i < v.size && i < len(frame); i++ {
		x[i] = float64(frame[i]) / math.MaxInt16 * v.window[i]
	}
	spectrum := fft.FFTReal(x)
	bins := v.size/2 + 1
	mags := make([]float64, bins)
	for i := range bins {
		mags[i] = cmplx.Abs(spectrum[i]) / float64(v.size)
	}
	var flux float64
	if v.prev != nil {
		for i, m := range mags {
			if d := m - v.prev[i]; d > 0 {
				flux += d
			}
		}
	}
	v.prev = mags
	return flux
}

func (v *FluxVAD) Reset() {
	v.prev = nil
}
