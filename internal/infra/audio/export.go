package audio

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/faiface/beep"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ExportClip writes the samples between fromMS and toMS to path as 16-bit
// PCM WAV. The range is clamped to the track; an empty range is an error.
func (e *Engine) ExportClip(path string, fromMS, toMS int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.buffer == nil {
		return errors.New("no track decoded")
	}

	from := e.format.SampleRate.N(time.Duration(fromMS) * time.Millisecond)
	to := e.format.SampleRate.N(time.Duration(toMS) * time.Millisecond)
	if from < 0 {
		from = 0
	}
	if to > e.buffer.Len() {
		to = e.buffer.Len()
	}
	if to <= from {
		return errors.Newf("empty clip range %dms..%dms", fromMS, toMS)
	}

	return writeWAV(path, e.buffer.Streamer(from, to), e.format)
}

// writeWAV drains the streamer into a WAV file, converting beep's float
// samples to 16-bit ints.
func writeWAV(path string, s beep.Streamer, format beep.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create clip file")
	}

	channels := format.NumChannels
	if channels > 2 {
		channels = 2
	}
	enc := wav.NewEncoder(f, int(format.SampleRate), 16, channels, 1)

	samples := make([][2]float64, 512)
	ints := make([]int, len(samples)*channels)
	for {
		n, ok := s.Stream(samples)
		if n > 0 {
			buf := ints[:n*channels]
			for i := 0; i < n; i++ {
				if channels == 1 {
					buf[i] = sampleToInt16((samples[i][0] + samples[i][1]) / 2)
				} else {
					buf[2*i] = sampleToInt16(samples[i][0])
					buf[2*i+1] = sampleToInt16(samples[i][1])
				}
			}
			err := enc.Write(&audio.IntBuffer{
				Data:           buf,
				Format:         &audio.Format{NumChannels: channels, SampleRate: int(format.SampleRate)},
				SourceBitDepth: 16,
			})
			if err != nil {
				enc.Close()
				f.Close()
				return errors.Wrap(err, "write clip samples")
			}
		}
		if !ok {
			break
		}
	}

	if err := enc.Close(); err != nil {
		f.Close()
		return errors.Wrap(err, "finalize clip")
	}
	return errors.Wrap(f.Close(), "close clip file")
}

func sampleToInt16(v float64) int {
	if v > 1 {
		v = 1
	}
	if v < -1 {
		v = -1
	}
	return int(v * 32767)
}
