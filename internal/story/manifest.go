package story

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Manifest is the YAML description of a story: title plus an ordered page
// list with caption text and optional per-page asset paths. Paths are
// resolved relative to the manifest's directory by the prefetch step.
type Manifest struct {
	Title    string         `yaml:"title"`
	ShareURL string         `yaml:"share_url,omitempty"`
	Pages    []PageManifest `yaml:"pages"`
}

type PageManifest struct {
	Caption      string `yaml:"caption"`
	Illustration string `yaml:"illustration,omitempty"`
	Narration    string `yaml:"narration,omitempty"`
}

func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if len(m.Pages) == 0 {
		return nil, fmt.Errorf("в манифесте %s нет страниц", path)
	}
	return &m, nil
}

func WriteManifest(m *Manifest, path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Story builds the page aggregate in manifest order. Assets are not loaded
// here; Prefetch fills them in.
func (m *Manifest) Story() *Story {
	st := &Story{Title: m.Title, ShareURL: m.ShareURL}
	for i, pm := range m.Pages {
		st.Pages = append(st.Pages, &Page{
			Index:            i,
			Caption:          pm.Caption,
			IllustrationPath: pm.Illustration,
			NarrationPath:    pm.Narration,
		})
	}
	return st
}
