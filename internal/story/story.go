// Package story defines the Story/Page aggregate the compositor consumes
// and the prefetch step that resolves page assets before an export run.
// Once the timeline driver starts, pages are read-only.
package story

import (
	"image"

	"github.com/ivlev/story2video/internal/audio"
)

// Page is one unit of the story. Illustration and Narration stay nil when
// the asset is absent or failed to resolve; the compositor and scheduler
// degrade per page instead of failing the run.
type Page struct {
	Index   int
	Caption string

	IllustrationPath string
	NarrationPath    string

	Illustration image.Image
	Narration    *audio.Clip
}

type Story struct {
	Title    string
	ShareURL string
	Pages    []*Page
}

// MissingNarration lists pages that have no narration clip at the moment of
// the call. Used for the pre-flight confirmation.
func (s *Story) MissingNarration() []int {
	var missing []int
	for _, p := range s.Pages {
		if p.Narration == nil || len(p.Narration.Data) == 0 {
			missing = append(missing, p.Index)
		}
	}
	return missing
}
