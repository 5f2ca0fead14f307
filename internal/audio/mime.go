// Package audio holds the audio helpers used by speech synthesis: payload
// sniffing, PCM to WAV wrapping, duration probing and the base64 decode worker.
package audio

import "bytes"

const (
	MIMEWAV  = "audio/wav"
	MIMEMPEG = "audio/mpeg"
)

// DetectMIME reports audio/wav for RIFF/WAVE payloads and audio/mpeg otherwise.
func DetectMIME(b []byte) string {
	if len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WAVE")) {
		return MIMEWAV
	}
	return MIMEMPEG
}

// LooksLikeMP3 reports whether b starts with an ID3 tag or an MPEG frame sync.
func LooksLikeMP3(b []byte) bool {
	if len(b) >= 3 && b[0] == 'I' && b[1] == 'D' && b[2] == '3' {
		return true
	}
	return len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0
}
