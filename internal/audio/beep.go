// Package audio synthesizes the short gather cue played before listening.
package audio

import (
	"encoding/binary"
	"math"
	"time"
)

// BeepWAV renders a sine tone with a short linear fade at both ends so the
// cue does not click on telephony codecs.
func BeepWAV(freq float64, dur time.Duration, sampleRate int) ([]byte, error) {
	if freq <= 0 {
		freq = 880
	}
	if dur <= 0 {
		dur = 250 * time.Millisecond
	}
	if sampleRate <= 0 {
		sampleRate = 8000
	}

	n := int(float64(sampleRate) * dur.Seconds())
	fade := sampleRate / 100 // 10ms
	if fade*2 > n {
		fade = n / 2
	}

	pcm := make([]byte, n*2)
	for i := 0; i < n; i++ {
		sample := 0.4 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		if i < fade {
			sample *= float64(i) / float64(fade)
		} else if i >= n-fade {
			sample *= float64(n-1-i) / float64(fade)
		}
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(sample*math.MaxInt16)))
	}
	return EncodeWAVPCM16LE(pcm, sampleRate)
}
