package video

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"panscan/internal/config"
	"panscan/internal/media/ffprobe"
	"panscan/internal/services"
)

// FFmpegSource streams frames from an ffmpeg child process.
type FFmpegSource struct {
	meta   Meta
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr *bytes.Buffer
	frame  int
	done   bool

	closeOnce sync.Once
	closeErr  error
}

func openFFmpeg(ctx context.Context, cfg *config.Config, path string) (Source, error) {
	return OpenFFmpeg(ctx, cfg.Tools.FFmpeg, cfg.Tools.FFprobe, path)
}

// OpenFFmpeg probes path and starts decoding its primary video stream.
func OpenFFmpeg(ctx context.Context, ffmpegBin, ffprobeBin, path string) (*FFmpegSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, services.Wrap(services.ErrNotFound, "sample", "open video", path, err)
	}
	probe, err := ffprobe.Inspect(ctx, ffprobeBin, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "sample", "probe video", path, err)
	}
	stream, ok := probe.PrimaryVideo()
	if !ok || stream.Width <= 0 || stream.Height <= 0 {
		return nil, services.Wrap(services.ErrValidation, "sample", "probe video", "no decodable video stream", nil)
	}
	// ffmpeg autorotates, so raw frames arrive at the display size.
	width, height := stream.DisplaySize()
	meta := Meta{
		TotalFrames: stream.FrameCount(probe.DurationSeconds()),
		FPS:         stream.FrameRate(),
		Width:       width,
		Height:      height,
	}

	args := []string{
		"-v", "error", "-nostdin", "-hide_banner",
		"-i", path,
		"-map", "0:v:0",
		"-vsync", "passthrough",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-",
	}
	cmd := exec.CommandContext(ctx, strings.TrimSpace(ffmpegBin), args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "sample", "decode", "stdout pipe", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "sample", "decode", "start ffmpeg", err)
	}
	return &FFmpegSource{
		meta:   meta,
		cmd:    cmd,
		stdout: stdout,
		reader: bufio.NewReaderSize(stdout, meta.Width*meta.Height*3),
		stderr: &stderr,
	}, nil
}

// Meta returns the probed stream metadata.
func (s *FFmpegSource) Meta() Meta { return s.meta }

// Next reads one rgb24 frame. A trailing partial frame is treated as the end
// of the stream. When ffmpeg fails before producing any frame the failure is
// returned instead of io.EOF.
func (s *FFmpegSource) Next(ctx context.Context) (image.Image, error) {
	if s.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, h := s.meta.Width, s.meta.Height
	raw := make([]byte, w*h*3)
	if _, err := io.ReadFull(s.reader, raw); err != nil {
		s.done = true
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			if waitErr := s.wait(); waitErr != nil && s.frame == 0 {
				return nil, waitErr
			}
			return nil, io.EOF
		}
		return nil, services.Wrap(services.ErrExternalTool, "sample", "decode", "read frame", err)
	}
	s.frame++
	return rgb24ToRGBA(raw, w, h), nil
}

// Close stops ffmpeg if it is still running and reports how it exited.
func (s *FFmpegSource) Close() error {
	if !s.done {
		s.done = true
		_ = s.stdout.Close()
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		_ = s.wait()
		return nil
	}
	return s.wait()
}

func (s *FFmpegSource) wait() error {
	s.closeOnce.Do(func() {
		if err := s.cmd.Wait(); err != nil {
			s.closeErr = services.Wrap(services.ErrExternalTool, "sample", "decode",
				fmt.Sprintf("ffmpeg exited: %s", strings.TrimSpace(s.stderr.String())), err)
		}
	})
	return s.closeErr
}

func rgb24ToRGBA(raw []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, j := 0, 0; i < len(raw); i, j = i+3, j+4 {
		img.Pix[j] = raw[i]
		img.Pix[j+1] = raw[i+1]
		img.Pix[j+2] = raw[i+2]
		img.Pix[j+3] = 0xff
	}
	return img
}
