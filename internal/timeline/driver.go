// Package timeline sequences one export run: a title card followed by one
// segment per page, each held open for its audio-derived duration while the
// capture sink keeps sampling the painted frame.
//
// Audio/video sync is achieved by duration matching, not by a shared clock:
// narration is scheduled fire-and-forget on the mix bus and the driver
// emits exactly the number of video frames the segment duration calls for.
// Each segment's duration is independently authoritative, so drift is
// bounded to under one frame interval per segment and never accumulates.
package timeline

import (
	"context"
	"fmt"
	"image"
	"log"

	"github.com/ivlev/story2video/internal/audio"
	"github.com/ivlev/story2video/internal/capture"
	"github.com/ivlev/story2video/internal/story"
)

// Sink is the live capture session the driver records into.
type Sink interface {
	WriteFrame(*image.RGBA) error
	Bus() *audio.MixBus
	Stop(ctx context.Context) (*capture.Blob, error)
}

// Renderer paints frames for the driver. Painting must be synchronous and
// must fully repaint per call.
type Renderer interface {
	RenderTitle(title, subtitle, shareURL string) *image.RGBA
	RenderPage(p *story.Page) *image.RGBA
}

// Progress reports a human-readable status before each stage starts
// recording, with the current page index and page total.
type Progress func(status string, current, total int)

// State machine: Idle → TitleCard → Page(i) → Finalizing → Done. Strictly
// sequential and forward-only; no pause, resume or seek.
type State int

const (
	StateIdle State = iota
	StateTitleCard
	StatePage
	StateFinalizing
	StateDone
)

type Driver struct {
	FPS         int
	TitleFrames int
	Subtitle    string

	Sched    *audio.Scheduler
	Renderer Renderer
	Sink     Sink
	Progress Progress

	state     State
	truncated bool
	emitted   int
}

// FrameCount converts a segment duration into the number of emitted frames:
// ceil(durationMs / (1000/fps)).
func FrameCount(durationMs, fps int) int {
	return (durationMs*fps + 999) / 1000
}

func (d *Driver) State() State    { return d.state }
func (d *Driver) Truncated() bool { return d.truncated }

// Run drives the full timeline over a started sink and finalizes it. A
// cancelled context drops straight to Finalizing so a truncated but valid
// file is still produced; cancellation is checked only between ticks.
func (d *Driver) Run(ctx context.Context, st *story.Story) (*capture.Blob, error) {
	if d.state != StateIdle {
		return nil, fmt.Errorf("timeline: драйвер одноразовый, состояние %d", d.state)
	}

	total := len(st.Pages)

	d.state = StateTitleCard
	d.report("титульный кадр", 0, total)
	frame := d.Renderer.RenderTitle(st.Title, d.Subtitle, st.ShareURL)
	cancelled, err := d.emit(ctx, frame, d.TitleFrames)
	if err != nil {
		return nil, err
	}

	for _, p := range st.Pages {
		if cancelled {
			break
		}

		d.state = StatePage
		d.report(fmt.Sprintf("страница %d из %d", p.Index+1, total), p.Index, total)

		frame := d.Renderer.RenderPage(p)

		// Fire-and-forget: the clip lands on the bus at the segment's
		// frame-quantized offset and is never awaited.
		offsetMs := d.offsetMs()
		d.Sched.Play(p.Narration, d.Sink.Bus(), offsetMs)

		durationMs := d.Sched.ScheduleDuration(p.Narration)
		cancelled, err = d.emit(ctx, frame, FrameCount(durationMs, d.FPS))
		if err != nil {
			return nil, err
		}
	}

	d.state = StateFinalizing
	if cancelled {
		d.truncated = true
		log.Printf("[!] Экспорт прерван, финализация частичного файла")
	}

	// Finalization must run even after cancellation so the file stays
	// playable.
	blob, err := d.Sink.Stop(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	d.state = StateDone
	return blob, nil
}

// emit writes n ticks of the same frame, checking the cancellation point
// between ticks. Returns whether the run was cancelled.
func (d *Driver) emit(ctx context.Context, frame *image.RGBA, n int) (bool, error) {
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			return true, nil
		}
		if err := d.Sink.WriteFrame(frame); err != nil {
			return false, err
		}
		d.emitted++
	}
	return false, nil
}

// offsetMs is the current timeline position, derived from frames already
// emitted so audio offsets stay frame-aligned.
func (d *Driver) offsetMs() int {
	return d.emitted * 1000 / d.FPS
}

func (d *Driver) report(status string, current, total int) {
	if d.Progress != nil {
		d.Progress(status, current, total)
	}
}
