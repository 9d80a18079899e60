package record

import (
	"encoding/binary"
	"math"
)

const (
	// DefaultSpeechThreshold is the mean absolute level below which a clip
	// is treated as silence.
	DefaultSpeechThreshold = 0.01

	// DefaultDeviationThreshold is the sample standard deviation below
	// which a clip is treated as flat noise.
	DefaultDeviationThreshold = 0.005

	// minSpeechBytes is the shortest clip worth analyzing: 100ms of
	// 16kHz mono s16.
	minSpeechBytes = 3200
)

// MeanLevel returns the mean absolute sample level of a PCM16LE buffer,
// normalized to [0, 1]. Used for the live level meter.
func MeanLevel(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < samples; i++ {
		s := int16(binary.LittleEndian.Uint16(pcm[i*2:]))
		sum += math.Abs(float64(s) / 32768.0)
	}
	return sum / float64(samples)
}

// RMSLevel returns the root mean square level of a PCM16LE buffer,
// normalized to [0, 1].
func RMSLevel(pcm []byte) float64 {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < samples; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
		sum += s * s
	}
	return math.Sqrt(sum / float64(samples))
}

// stats returns the mean absolute level and the sample standard deviation
// of a PCM16LE buffer in one pass, both normalized to [0, 1].
func stats(pcm []byte) (meanAbs, stdDev float64) {
	samples := len(pcm) / 2
	if samples == 0 {
		return 0, 0
	}
	var sumAbs, sum, sumSq float64
	for i := 0; i < samples; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
		sumAbs += math.Abs(s)
		sum += s
		sumSq += s * s
	}
	n := float64(samples)
	mean := sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return sumAbs / n, math.Sqrt(variance)
}

// HasSpeech reports whether a clip carries enough signal to be worth
// transcribing. Clips shorter than 100ms never qualify; otherwise the clip
// is silence only when both mean amplitude and deviation sit under their
// thresholds. Thresholds <= 0 select the defaults.
func HasSpeech(pcm []byte, meanThreshold, deviationThreshold float64) bool {
	if len(pcm) < minSpeechBytes {
		return false
	}
	if meanThreshold <= 0 {
		meanThreshold = DefaultSpeechThreshold
	}
	if deviationThreshold <= 0 {
		deviationThreshold = DefaultDeviationThreshold
	}
	meanAbs, stdDev := stats(pcm)
	return meanAbs > meanThreshold || stdDev > deviationThreshold
}
