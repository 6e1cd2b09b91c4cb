// Package engine assembles one export run: pre-flight narration check,
// capture negotiation, the timeline drive and output naming.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ivlev/story2video/internal/audio"
	"github.com/ivlev/story2video/internal/capture"
	"github.com/ivlev/story2video/internal/compositor"
	"github.com/ivlev/story2video/internal/config"
	"github.com/ivlev/story2video/internal/format"
	"github.com/ivlev/story2video/internal/story"
	"github.com/ivlev/story2video/internal/timeline"
)

// ErrAborted is returned when the caller declines the pre-flight
// confirmation for pages without narration.
var ErrAborted = fmt.Errorf("экспорт отменён пользователем")

// SessionFactory builds and starts the capture sink for a run. Injectable
// so tests run without ffmpeg.
type SessionFactory func(ctx context.Context, bus *audio.MixBus) (timeline.Sink, error)

// ExportProject performs one story export. Exactly one run may be in
// flight per project; concurrent attempts are rejected rather than sharing
// the surface and bus.
type ExportProject struct {
	Config *config.Config
	Story  *story.Story
	Format format.Format

	NewSession SessionFactory
	Progress   timeline.Progress
	// Confirm decides whether to proceed when some pages lack narration at
	// export time. Nil means proceed.
	Confirm func(missingPages []int) bool

	running atomic.Bool
}

// DefaultSessionFactory negotiates a container/codec pair against the
// local ffmpeg build and starts a real capture session.
func DefaultSessionFactory(prober capture.Prober, h264Encoder string, params capture.Params) SessionFactory {
	return func(ctx context.Context, bus *audio.MixBus) (timeline.Sink, error) {
		cand, err := capture.Negotiate(prober, capture.DefaultCandidates(h264Encoder))
		if err != nil {
			return nil, err
		}
		s := capture.NewSession(cand, params, bus)
		if err := s.Start(ctx); err != nil {
			return nil, err
		}
		return s, nil
	}
}

// Run executes the export and returns the finalized blob plus a suggested
// file name. Per-page asset failures have already degraded to nil fields
// during prefetch; only run-level failures (no codec, no surface) are
// returned as errors.
func (p *ExportProject) Run(ctx context.Context) (*capture.Blob, string, error) {
	if !p.running.CompareAndSwap(false, true) {
		return nil, "", fmt.Errorf("экспорт уже выполняется")
	}
	defer p.running.Store(false)

	startTime := time.Now()

	if missing := p.Story.MissingNarration(); len(missing) > 0 {
		if p.Confirm != nil && !p.Confirm(missing) {
			return nil, "", ErrAborted
		}
	}

	comp, err := compositor.New(p.Format.Geometry())
	if err != nil {
		return nil, "", fmt.Errorf("не удалось создать поверхность рендеринга: %w", err)
	}

	bus := audio.NewMixBus()
	sink, err := p.NewSession(ctx, bus)
	if err != nil {
		return nil, "", err
	}

	sched := &audio.Scheduler{PadMs: p.Config.PadMs, FallbackMs: p.Config.FallbackMs}
	driver := &timeline.Driver{
		FPS:         p.Config.FPS,
		TitleFrames: timeline.FrameCount(p.Config.TitleMs, p.Config.FPS),
		Subtitle:    "иллюстрированная история",
		Sched:       sched,
		Renderer:    comp,
		Sink:        sink,
		Progress:    p.Progress,
	}

	blob, err := driver.Run(ctx, p.Story)
	if err != nil {
		return nil, "", err
	}

	if p.Config.ShowStats {
		fmt.Printf("--- [EXPORT REPORT] ---\n")
		fmt.Printf("Страниц: %d | Время: %.2fs | Размер: %d байт\n",
			len(p.Story.Pages), time.Since(startTime).Seconds(), len(blob.Data))
		for _, seg := range p.segments(sched) {
			fmt.Printf("Страница %d: %d мс, %d кадров\n",
				seg.PageIndex+1, seg.DurationMs, seg.FrameCount)
		}
		fmt.Printf("-----------------------\n")
	}

	return blob, SuggestFileName(p.Story.Title, p.Format, blob.Ext), nil
}

// segments reports the per-page timing the run used, for the export report.
func (p *ExportProject) segments(sched *audio.Scheduler) []config.SegmentParams {
	out := make([]config.SegmentParams, 0, len(p.Story.Pages))
	for _, pg := range p.Story.Pages {
		d := sched.ScheduleDuration(pg.Narration)
		out = append(out, config.SegmentParams{
			PageIndex:  pg.Index,
			DurationMs: d,
			FrameCount: timeline.FrameCount(d, p.Config.FPS),
		})
	}
	return out
}

// SuggestFileName derives the download name from the story title: runs of
// whitespace become underscores, the format tag is appended and the
// extension follows the negotiated MIME type.
func SuggestFileName(title string, f format.Format, ext string) string {
	clean := strings.Join(strings.Fields(title), "_")
	if clean == "" {
		clean = "story"
	}
	return fmt.Sprintf("%s_%s%s", clean, f, ext)
}
