package audio

const (
	// DefaultPadMs is the trailing silence after narration ends, giving the
	// viewer a beat before the next page.
	DefaultPadMs = 800
	// DefaultFallbackMs keeps silent pages on screen long enough to read.
	DefaultFallbackMs = 3000
)

// Scheduler computes each page's on-screen duration from its narration clip
// and feeds the clip into the shared mix bus. Playback is fire-and-forget:
// the timeline driver never waits on audio, it waits out the duration
// computed here, so video and audio stay in sync by duration matching.
type Scheduler struct {
	PadMs      int
	FallbackMs int
}

func NewScheduler() *Scheduler {
	return &Scheduler{PadMs: DefaultPadMs, FallbackMs: DefaultFallbackMs}
}

// ScheduleDuration returns the page's segment duration in milliseconds:
// narration length plus the trailing pad when a clip is present, the
// fallback floor otherwise.
func (s *Scheduler) ScheduleDuration(clip *Clip) int {
	if clip == nil || len(clip.Data) == 0 {
		return s.FallbackMs
	}
	return clip.DurationMs() + s.PadMs
}

// Play schedules the clip on the bus at the given offset. No-op without a
// clip.
func (s *Scheduler) Play(clip *Clip, bus *MixBus, offsetMs int) {
	if clip == nil || bus == nil {
		return
	}
	bus.ScheduleAt(clip, offsetMs)
}
