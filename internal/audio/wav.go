package audio

import (
	"encoding/binary"
	"regexp"
	"strconv"
	"strings"
)

// DefaultPCMRate is the sample rate assumed for raw PCM without a rate parameter.
const DefaultPCMRate = 24000

const wavHeaderSize = 44

var rateParam = regexp.MustCompile(`rate=(\d+)`)

// IsPCM reports whether mimeType names raw 16-bit linear PCM.
func IsPCM(mimeType string) bool {
	return strings.Contains(mimeType, "audio/L16")
}

// PCMRate extracts the sample rate from a mime type such as
// "audio/L16;codec=pcm;rate=24000".
func PCMRate(mimeType string) int {
	m := rateParam.FindStringSubmatch(mimeType)
	if m == nil {
		return DefaultPCMRate
	}
	rate, err := strconv.Atoi(m[1])
	if err != nil || rate <= 0 {
		return DefaultPCMRate
	}
	return rate
}

// PCMToWAV prefixes pcm with a canonical 44-byte RIFF/WAVE header.
func PCMToWAV(pcm []byte, sampleRate, channels, bitDepth int) []byte {
	blockAlign := channels * bitDepth / 8
	byteRate := sampleRate * blockAlign

	out := make([]byte, wavHeaderSize+len(pcm))
	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], 1)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], uint16(bitDepth))
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out
}
