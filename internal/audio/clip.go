// Package audio holds decoded narration clips, the shared mix bus that all
// narration is scheduled into, and the cue scheduler that derives each
// page's on-screen duration from its clip.
package audio

import "time"

// BusSampleRate is the fixed rate of the mix bus. Clips at other rates are
// resampled when scheduled.
const BusSampleRate = 44100

// Clip is a decoded mono PCM buffer.
type Clip struct {
	Data       []int16
	SampleRate int
}

func (c *Clip) Duration() time.Duration {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Data)) * time.Second / time.Duration(c.SampleRate)
}

// DurationMs rounds up so a segment never undershoots its narration.
func (c *Clip) DurationMs() int {
	if c == nil || c.SampleRate <= 0 {
		return 0
	}
	return (len(c.Data)*1000 + c.SampleRate - 1) / c.SampleRate
}
