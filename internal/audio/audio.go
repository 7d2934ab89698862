// Package audio normalizes downloaded challenge audio into the single
// encoding the transcriber accepts: mono, signed 16-bit PCM at 16 kHz.
package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// TargetRate is the sample rate every clip is resampled to.
const TargetRate = 16000

// ErrUnsupportedFormat is returned for input that is neither WAV nor MP3.
var ErrUnsupportedFormat = errors.New("audio: unsupported format")

// Clip is mono 16-bit PCM.
type Clip struct {
	Samples    []int16
	SampleRate int
}

// Duration returns the clip length in seconds.
func (c Clip) Duration() float64 {
	if c.SampleRate == 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

// L16 encodes the samples as little-endian signed 16-bit PCM.
func (c Clip) L16() []byte {
	out := make([]byte, 2*len(c.Samples))
	for i, s := range c.Samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

// Normalize decodes raw WAV or MP3 bytes, mixes them down to mono and
// resamples to TargetRate.
func Normalize(raw []byte) (Clip, error) {
	clip, err := Decode(raw)
	if err != nil {
		return Clip{}, err
	}
	return Resample(clip, TargetRate), nil
}

// Decode sniffs the container and returns the mono clip at its native rate.
func Decode(raw []byte) (Clip, error) {
	switch {
	case len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WAVE":
		return decodeWAV(raw)
	case isMP3(raw):
		return decodeMP3(raw)
	default:
		return Clip{}, ErrUnsupportedFormat
	}
}

func isMP3(raw []byte) bool {
	if len(raw) >= 3 && string(raw[0:3]) == "ID3" {
		return true
	}
	// MPEG frame sync: 11 set bits.
	return len(raw) >= 2 && raw[0] == 0xFF && raw[1]&0xE0 == 0xE0
}

func decodeWAV(raw []byte) (Clip, error) {
	d := wav.NewDecoder(bytes.NewReader(raw))
	if !d.IsValidFile() {
		return Clip{}, fmt.Errorf("decode wav: %w", ErrUnsupportedFormat)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("decode wav: %w", err)
	}

	channels := 1
	rate := int(d.SampleRate)
	if buf.Format != nil {
		if buf.Format.NumChannels > 0 {
			channels = buf.Format.NumChannels
		}
		if buf.Format.SampleRate > 0 {
			rate = buf.Format.SampleRate
		}
	}
	depth := int(d.BitDepth)

	frames := len(buf.Data) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += to16(buf.Data[i*channels+ch], depth)
		}
		out[i] = int16(sum / channels)
	}
	return Clip{Samples: out, SampleRate: rate}, nil
}

// to16 rescales a sample of the given bit depth to the signed 16-bit range.
func to16(v, depth int) int {
	switch {
	case depth == 8:
		return (v - 128) << 8
	case depth > 16:
		return v >> (depth - 16)
	default:
		return v
	}
}

func decodeMP3(raw []byte) (Clip, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(raw))
	if err != nil {
		return Clip{}, fmt.Errorf("decode mp3: %w", err)
	}
	pcm, err := io.ReadAll(d)
	if err != nil {
		return Clip{}, fmt.Errorf("decode mp3: %w", err)
	}

	// go-mp3 always yields interleaved little-endian 16-bit stereo.
	frames := len(pcm) / 4
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		l := int(int16(binary.LittleEndian.Uint16(pcm[4*i:])))
		r := int(int16(binary.LittleEndian.Uint16(pcm[4*i+2:])))
		out[i] = int16((l + r) / 2)
	}
	return Clip{Samples: out, SampleRate: d.SampleRate()}, nil
}

// Resample converts the clip to rate using linear interpolation.
func Resample(c Clip, rate int) Clip {
	if c.SampleRate == rate || c.SampleRate <= 0 || len(c.Samples) == 0 {
		return Clip{Samples: c.Samples, SampleRate: rate}
	}

	n := int(int64(len(c.Samples)) * int64(rate) / int64(c.SampleRate))
	out := make([]int16, n)
	step := float64(c.SampleRate) / float64(rate)
	last := len(c.Samples) - 1
	for i := range out {
		pos := float64(i) * step
		j := int(pos)
		if j >= last {
			out[i] = c.Samples[last]
			continue
		}
		frac := pos - float64(j)
		a, b := float64(c.Samples[j]), float64(c.Samples[j+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return Clip{Samples: out, SampleRate: rate}
}
