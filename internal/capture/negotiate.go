package capture

import "fmt"

// Prober reports which muxers and encoders the local ffmpeg build supports.
type Prober interface {
	HasEncoder(name string) bool
	HasMuxer(name string) bool
}

// Candidate is one container/codec pair the session may record into.
type Candidate struct {
	Muxer      string
	VideoCodec string
	AudioCodec string
	MimeType   string
	Ext        string
}

// DefaultCandidates returns the preference-ordered container/codec list.
// h264Encoder is the best available H.264 encoder name (hardware or
// libx264), probed the same way for every H.264 container.
func DefaultCandidates(h264Encoder string) []Candidate {
	return []Candidate{
		{Muxer: "mp4", VideoCodec: h264Encoder, AudioCodec: "aac", MimeType: "video/mp4", Ext: ".mp4"},
		{Muxer: "matroska", VideoCodec: h264Encoder, AudioCodec: "aac", MimeType: "video/x-matroska", Ext: ".mkv"},
		{Muxer: "webm", VideoCodec: "libvpx-vp9", AudioCodec: "libopus", MimeType: "video/webm", Ext: ".webm"},
	}
}

// Negotiate picks the first candidate whose muxer and codecs the runtime
// supports. Zero supported candidates is a fatal, run-level error: nothing
// has been captured yet and the export must not start.
func Negotiate(p Prober, candidates []Candidate) (Candidate, error) {
	for _, c := range candidates {
		if p.HasMuxer(c.Muxer) && p.HasEncoder(c.VideoCodec) && p.HasEncoder(c.AudioCodec) {
			return c, nil
		}
	}
	return Candidate{}, fmt.Errorf("ни одна пара контейнер/кодек не поддерживается ffmpeg")
}
