package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hajimehoshi/go-mp3"
)

// Speech is estimated at 150 characters per minute when the payload cannot be probed.
const charsPerMinute = 150

var errNoDuration = errors.New("audio: duration unavailable")

// EstimateDuration returns the heuristic playback length in seconds for chars
// characters of speech.
func EstimateDuration(chars int) float64 {
	return math.Ceil(float64(chars) / charsPerMinute * 60)
}

// Duration probes b for its playback length in seconds.
func Duration(b []byte) (float64, error) {
	if DetectMIME(b) == MIMEWAV {
		return wavDuration(b)
	}
	return mp3Duration(b)
}

// wavDuration walks the RIFF chunks for the fmt byte rate and the data size.
func wavDuration(b []byte) (float64, error) {
	var byteRate uint32
	var dataSize uint32
	haveData := false
	for off := 12; off+8 <= len(b) && (!haveData || byteRate == 0); {
		id := string(b[off : off+4])
		size := binary.LittleEndian.Uint32(b[off+4 : off+8])
		body := off + 8
		switch id {
		case "fmt ":
			if body+12 > len(b) {
				return 0, fmt.Errorf("audio: truncated fmt chunk: %w", errNoDuration)
			}
			byteRate = binary.LittleEndian.Uint32(b[body+8 : body+12])
		case "data":
			dataSize = size
			if rest := uint32(len(b) - body); dataSize > rest {
				dataSize = rest
			}
			haveData = true
		}
		off = body + int(size) + int(size&1)
	}
	if !haveData || byteRate == 0 {
		return 0, fmt.Errorf("audio: missing wav chunks: %w", errNoDuration)
	}
	return float64(dataSize) / float64(byteRate), nil
}

func mp3Duration(b []byte) (float64, error) {
	d, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return 0, fmt.Errorf("audio: decode mp3: %w", err)
	}
	// Length is in bytes of 16-bit stereo output.
	length := d.Length()
	if length <= 0 || d.SampleRate() <= 0 {
		return 0, fmt.Errorf("audio: mp3 length unknown: %w", errNoDuration)
	}
	return float64(length) / float64(4*d.SampleRate()), nil
}

// DurationOrEstimate probes b and falls back to the character heuristic.
func DurationOrEstimate(b []byte, chars int) float64 {
	if d, err := Duration(b); err == nil && d > 0 {
		return d
	}
	return EstimateDuration(chars)
}
