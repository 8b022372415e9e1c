package tools

import (
	"encoding/binary"
	"math"
	"time"
)

func FrameSamples(duration time.Duration, rate, channels int) int {
	return int(duration.Seconds() * float64(channels) * float64(rate))
}

// FrameDuration is the playing time of n interleaved samples.
func FrameDuration(n, rate, channels int) time.Duration {
	if rate <= 0 || channels <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate*channels)
}

// PCM16LE encodes samples as signed 16-bit little endian.
func PCM16LE(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// Int16s decodes signed 16-bit little endian PCM. A trailing odd byte is
// ignored.
func Int16s(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// RMS is the root mean square of samples scaled to [-1, 1].
func RMS(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / math.MaxInt16
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Downmix averages interleaved frames into mono.
func Downmix(interleaved []int16, channels int) []int16 {
	if channels <= 1 {
		return interleaved
	}
	out := make([]int16, len(interleaved)/channels)
	for i := range out {
		var sum int
		for c := range channels {
			sum += int(interleaved[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// FloatToInt16 converts samples in [-1, 1] to 16-bit, clipping anything
// outside that range.
func FloatToInt16(samples []float32) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		v := math.Round(float64(s) * math.MaxInt16)
		out[i] = int16(max(min(v, math.MaxInt16), math.MinInt16))
	}
	return out
}
