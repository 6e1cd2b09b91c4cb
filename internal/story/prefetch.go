package story

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/story2video/internal/audio"
	"github.com/ivlev/story2video/internal/source"
)

// PrefetchOptions controls how page assets are resolved before the run.
type PrefetchOptions struct {
	// Source serves illustrations by page index for pages without an
	// explicit illustration path. Optional.
	Source source.IllustrationSource
	// BaseDir resolves relative asset paths from the manifest.
	BaseDir string
	// Workers bounds concurrent asset loads.
	Workers int
	// AssetTimeout bounds a single asset load before the page degrades.
	AssetTimeout time.Duration
}

// Prefetch resolves illustrations and narration clips for every page
// concurrently. It is strictly a read-only feed into the pages: after it
// returns, nothing mutates page state again. A failed asset is logged and
// leaves the field nil — per-page failures never abort the export.
func Prefetch(ctx context.Context, st *Story, opts PrefetchOptions) error {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	timeout := opts.AssetTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, p := range st.Pages {
		p := p
		g.Go(func() error {
			loadCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if img, err := loadIllustration(p, opts); err != nil {
				log.Printf("[!] Страница %d: иллюстрация не загружена: %v", p.Index+1, err)
			} else {
				p.Illustration = img
			}

			if p.NarrationPath != "" {
				clip, err := LoadClip(loadCtx, resolve(opts.BaseDir, p.NarrationPath))
				if err != nil {
					log.Printf("[!] Страница %d: озвучка не загружена: %v", p.Index+1, err)
				} else {
					p.Narration = clip
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func resolve(base, path string) string {
	if base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func loadIllustration(p *Page, opts PrefetchOptions) (image.Image, error) {
	if p.IllustrationPath != "" {
		f, err := os.Open(resolve(opts.BaseDir, p.IllustrationPath))
		if err != nil {
			return nil, err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		return img, err
	}
	if opts.Source != nil && p.Index < opts.Source.Count() {
		return opts.Source.Render(p.Index)
	}
	return nil, fmt.Errorf("иллюстрация не задана")
}

// LoadClip decodes a narration file into a mono PCM clip. WAV files are
// parsed directly; anything else goes through ffmpeg.
func LoadClip(ctx context.Context, path string) (*audio.Clip, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return audio.DecodeWAV(f)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-v", "error",
		"-i", path,
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", audio.BusSampleRate),
		"-f", "wav", "-",
	)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode error: %v, output: %s", err, errBuf.String())
	}
	return audio.DecodeWAV(&out)
}
