package config

type Config struct {
	ManifestPath  string
	AssetsPath    string
	OutputVideo   string
	Preset        string
	FPS           int
	PadMs         int
	FallbackMs    int
	TitleMs       int
	ShareURL      string
	Workers       int
	VideoEncoder  string
	Quality       int
	AssumeYes     bool
	ShowStats     bool
	BuildVersion  string
}

// Параметры одного сегмента (титул или страница) для отчётов и тестов.
type SegmentParams struct {
	PageIndex  int
	DurationMs int
	FrameCount int
}
