// Package capture owns the recording session for one export run: it feeds
// raw RGBA frames into an ffmpeg encoder at a fixed frame rate, keeps the
// shared mix bus, and finalizes video plus audio into a single Blob.
package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ivlev/story2video/internal/audio"
)

// State is one-directional: Idle → Recording → Stopped. A new export run
// requires a new Session.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateStopped:
		return "stopped"
	}
	return "idle"
}

// Blob is the finalized deliverable: encoded bytes tagged with the
// negotiated MIME type.
type Blob struct {
	Data     []byte
	MimeType string
	Ext      string
}

// Params fixes the raster and encode settings for the whole run.
type Params struct {
	Width   int
	Height  int
	FPS     int
	Quality int
}

type Session struct {
	cand   Candidate
	params Params
	bus    *audio.MixBus

	state   State
	tmpDir  string
	video   string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	wr      *bufio.Writer
	encLog  bytes.Buffer
	frames  int
	scratch *image.RGBA
}

func NewSession(cand Candidate, params Params, bus *audio.MixBus) *Session {
	return &Session{cand: cand, params: params, bus: bus}
}

func (s *Session) State() State         { return s.state }
func (s *Session) Frames() int          { return s.frames }
func (s *Session) Bus() *audio.MixBus   { return s.bus }
func (s *Session) Candidate() Candidate { return s.cand }

// Start launches the encoder before the timeline begins. Every frame
// written afterwards advances the output by exactly one frame interval.
// The encoder process is deliberately not bound to ctx: shutdown is always
// a clean stdin EOF in Stop, so a cancelled export still finalizes.
func (s *Session) Start(ctx context.Context) error {
	if s.state != StateIdle {
		return fmt.Errorf("capture: сессия уже в состоянии %s", s.state)
	}

	tmpDir, err := os.MkdirTemp("", "story2video_")
	if err != nil {
		return err
	}
	s.tmpDir = tmpDir
	s.video = filepath.Join(tmpDir, "video"+s.cand.Ext)

	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", s.params.Width, s.params.Height),
		"-framerate", fmt.Sprintf("%d", s.params.FPS),
		"-i", "-",
		"-c:v", s.cand.VideoCodec,
		"-r", fmt.Sprintf("%d", s.params.FPS),
		"-pix_fmt", "yuv420p",
	}
	args = append(args, qualityArgs(s.cand.VideoCodec, s.params.Quality)...)
	args = append(args, "-f", s.cand.Muxer, s.video)

	cmd := exec.Command("ffmpeg", args...)
	cmd.Stdout = &s.encLog
	cmd.Stderr = &s.encLog

	stdin, err := cmd.StdinPipe()
	if err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		os.RemoveAll(tmpDir)
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	s.cmd = cmd
	s.stdin = stdin
	s.wr = bufio.NewWriterSize(stdin, 1<<20)
	s.state = StateRecording
	return nil
}

// WriteFrame appends one frame interval of video. The raster is copied out
// immediately, so the caller may repaint its surface after the call.
func (s *Session) WriteFrame(img *image.RGBA) error {
	if s.state != StateRecording {
		return fmt.Errorf("capture: запись кадра в состоянии %s", s.state)
	}
	if err := s.writeRawRGBA(img); err != nil {
		return fmt.Errorf("write raw error: %w", err)
	}
	s.frames++
	return nil
}

func (s *Session) writeRawRGBA(img *image.RGBA) error {
	bounds := img.Bounds()
	rgba := img
	if rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		if s.scratch == nil || s.scratch.Rect != bounds {
			s.scratch = image.NewRGBA(bounds)
		}
		draw.Draw(s.scratch, bounds, img, bounds.Min, draw.Src)
		rgba = s.scratch
	}
	_, err := s.wr.Write(rgba.Pix)
	return err
}

// Stop closes the encoder input, waits for the final chunk to flush, muxes
// the mix-bus track in and returns the finished Blob. Resolves only after
// ffmpeg exits — encoder completion is asynchronous with respect to the
// last WriteFrame.
func (s *Session) Stop(ctx context.Context) (*Blob, error) {
	if s.state != StateRecording {
		return nil, fmt.Errorf("capture: остановка в состоянии %s", s.state)
	}
	s.state = StateStopped
	defer os.RemoveAll(s.tmpDir)

	if err := s.wr.Flush(); err != nil {
		s.stdin.Close()
		s.cmd.Wait()
		return nil, fmt.Errorf("flush error: %w", err)
	}
	s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return nil, fmt.Errorf("ffmpeg wait error: %v, output: %s", err, s.encLog.String())
	}

	finalPath := s.video
	if s.bus != nil && !s.bus.Empty() {
		// The track ends at the last narration sample; pad it with silence
		// to the full video length so the muxed container covers trailing
		// silent pages and the final pause.
		s.bus.PadTo((s.frames*1000 + s.params.FPS - 1) / s.params.FPS)
		muxed, err := s.muxAudio(ctx)
		if err != nil {
			return nil, err
		}
		finalPath = muxed
	}

	data, err := os.ReadFile(finalPath)
	if err != nil {
		return nil, err
	}
	return &Blob{Data: data, MimeType: s.cand.MimeType, Ext: s.cand.Ext}, nil
}

// muxAudio renders the mix bus to WAV and remuxes it with the already
// encoded video stream, copying video and encoding audio once.
func (s *Session) muxAudio(ctx context.Context) (string, error) {
	wavPath := filepath.Join(s.tmpDir, "mix.wav")
	f, err := os.Create(wavPath)
	if err != nil {
		return "", err
	}
	if err := audio.EncodeWAV(f, s.bus.Render()); err != nil {
		f.Close()
		return "", err
	}
	f.Close()

	outPath := filepath.Join(s.tmpDir, "final"+s.cand.Ext)
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", s.video,
		"-i", wavPath,
		"-c:v", "copy",
		"-c:a", s.cand.AudioCodec,
		"-f", s.cand.Muxer,
		outPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", fmt.Errorf("ffmpeg mux error: %v, output: %s", err, string(out))
	}
	return outPath, nil
}

func qualityArgs(encoderName string, quality int) []string {
	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox не поддерживает -q:v на всех версиях, задаём битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	case "libvpx-vp9":
		return []string{"-crf", fmt.Sprintf("%d", quality), "-b:v", "0"}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}
