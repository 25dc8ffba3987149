package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/sirupsen/logrus"
)

const maxStderrBytes = 8 * 1024 // tail of ffmpeg stderr kept for diagnostics

// maxImageWidth caps normalized images; larger frames only cost tokens.
const maxImageWidth = 1568

// Transcoder normalizes a downloaded asset into the inference encoding. A
// nil preset means plain image normalization. The bool is false when no
// usable asset could be produced.
type Transcoder interface {
	Transcode(ctx context.Context, s *Scratch, in Asset, kind Kind, preset *Preset) (Asset, bool)
}

type FFmpeg struct {
	bin     string
	timeout time.Duration
	log     *logrus.Entry
}

func NewFFmpeg(bin string, timeout time.Duration, log *logrus.Entry) *FFmpeg {
	return &FFmpeg{bin: bin, timeout: timeout, log: log.WithField("component", "transcoder")}
}

func (f *FFmpeg) Transcode(ctx context.Context, s *Scratch, in Asset, kind Kind, preset *Preset) (Asset, bool) {
	var (
		out  Asset
		args []string
	)
	if kind == KindVideo && preset != nil {
		out = Asset{Path: s.NewPath(".mp4"), MIME: "video/mp4"}
		args = VideoArgs(in.Path, out.Path, *preset)
	} else {
		out = Asset{Path: s.NewPath(".jpg"), MIME: "image/jpeg"}
		args = ImageArgs(in.Path, out.Path)
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	stderr, err := f.run(ctx, args)
	log := f.log.WithFields(logrus.Fields{
		"kind":        kind,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if err == nil && nonEmpty(out.Path) {
		log.Debug("transcode succeeded")
		return out, true
	}
	s.Drop(out)

	if err == nil {
		err = errors.New("no output produced")
	}
	log = log.WithError(err).WithField("stderr_tail", truncate(stderr, 512))

	if mime, ok := Acceptable(in.Path, kind); ok {
		log.WithField("mime", mime).Warn("transcode failed, passing original through")
		return Asset{Path: in.Path, MIME: mime}, true
	}
	log.Warn("transcode failed and original is not usable")
	return Asset{}, false
}

func (f *FFmpeg) run(ctx context.Context, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	// children that outlive a killed ffmpeg must not hold Wait on the stderr pipe
	cmd.WaitDelay = 2 * time.Second

	err := cmd.Run()
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("ffmpeg timed out after %s", f.timeout)
	}
	return stderrBuf.String(), err
}

// VideoArgs scales within the preset box keeping aspect ratio, caps frame
// rate, bitrate and duration, and lays out the moov atom for streaming.
func VideoArgs(in, out string, p Preset) []string {
	scale := fmt.Sprintf(
		"scale='min(%d,iw)':'min(%d,ih)':force_original_aspect_ratio=decrease,scale=trunc(iw/2)*2:trunc(ih/2)*2",
		p.MaxWidth, p.MaxHeight)
	return []string{
		"-y",
		"-i", in,
		"-t", strconv.Itoa(int(p.MaxDuration.Seconds())),
		"-vf", scale,
		"-r", strconv.Itoa(p.FrameRate),
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", kbit(p.VideoBitrate),
		"-maxrate", kbit(p.MaxRate),
		"-bufsize", kbit(p.BufSize),
		"-pix_fmt", "yuv420p",
		"-c:a", "aac",
		"-b:a", "96k",
		"-movflags", "+faststart",
		out,
	}
}

// ImageArgs re-encodes a single frame as JPEG no wider than maxImageWidth.
func ImageArgs(in, out string) []string {
	return []string{
		"-y",
		"-i", in,
		"-vf", fmt.Sprintf("scale='min(%d,iw)':-2", maxImageWidth),
		"-frames:v", "1",
		"-q:v", "3",
		out,
	}
}

var acceptedMIME = map[Kind][]string{
	KindVideo: {"video/mp4"},
	KindImage: {"image/jpeg", "image/png", "image/webp", "image/gif"},
}

// Acceptable sniffs path and reports whether it can be sent as-is for kind.
func Acceptable(path string, kind Kind) (string, bool) {
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "", false
	}
	for _, want := range acceptedMIME[kind] {
		if m.Is(want) {
			return want, true
		}
	}
	return m.String(), false
}

func kbit(v int) string { return strconv.Itoa(v) + "k" }

func nonEmpty(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Size() > 0
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		tail := append([]byte(nil), b[len(b)-lw.limit:]...)
		lw.w.Reset()
		lw.w.Write(tail)
	}
	return n, nil
}
