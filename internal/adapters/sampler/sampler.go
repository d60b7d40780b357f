// Package sampler extracts frames from video files into a scoped
// staging directory using OpenCV.
package sampler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gocv.io/x/gocv"

	service "github.com/strokelab/rallylens/internal/app"
	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/pkg/logger"
)

// Default sampler configuration constants.
const (
	defaultInterval = 5
	fallbackFPS     = 30.0
)

// Sampler decodes a video and stages every Nth frame as a JPEG.
type Sampler struct {
	interval   int
	stagingDir string

	logger logger.Logger
}

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithInterval sets the sampling stride in frames.
func WithInterval(n int) Option {
	return func(s *Sampler) {
		if n > 0 {
			s.interval = n
		}
	}
}

// WithStagingDir sets the parent directory for staged frames. Empty
// uses the system temp directory.
func WithStagingDir(dir string) Option {
	return func(s *Sampler) {
		s.stagingDir = dir
	}
}

// WithLogger sets a custom logger for the sampler.
func WithLogger(log logger.Logger) Option {
	return func(s *Sampler) {
		if log != nil {
			s.logger = log
		}
	}
}

// New creates a sampler with configuration options.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		interval: defaultInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("sampler")
	}
	return s
}

// Sample decodes videoRef and stages sampled frames on disk. The
// returned set owns the staging directory; Close removes it.
func (s *Sampler) Sample(ctx context.Context, videoRef string) (service.SampleSet, error) {
	cap, err := gocv.VideoCaptureFile(videoRef)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", videoRef, err)
	}
	defer cap.Close()

	fps := cap.Get(gocv.VideoCaptureFPS)
	if fps <= 0 {
		fps = fallbackFPS
	}

	dir, err := os.MkdirTemp(s.stagingDir, "rallylens-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}

	mat := gocv.NewMat()
	defer mat.Close()

	var (
		frames []model.Frame
		paths  []string
	)
	sourceIndex := 0
	for {
		select {
		case <-ctx.Done():
			_ = os.RemoveAll(dir)
			return nil, ctx.Err()
		default:
		}

		if ok := cap.Read(&mat); !ok {
			break
		}
		if mat.Empty() {
			sourceIndex++
			continue
		}

		if sourceIndex%s.interval == 0 {
			path := filepath.Join(dir, fmt.Sprintf("frame-%06d.jpg", sourceIndex))
			if ok := gocv.IMWrite(path, mat); !ok {
				s.logger.Warn(ctx, "failed to stage frame; skipping",
					logger.Int("sourceIndex", sourceIndex),
				)
				sourceIndex++
				continue
			}
			frames = append(frames, model.Frame{
				Index:     len(frames),
				Timestamp: float64(sourceIndex) / fps,
			})
			paths = append(paths, path)
		}
		sourceIndex++
	}

	if len(frames) == 0 {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("no decodable frames in %s", videoRef)
	}

	s.logger.Info(ctx, "frames staged",
		logger.String("videoRef", videoRef),
		logger.Int("sampled", len(frames)),
		logger.Int("decoded", sourceIndex),
	)

	return &Session{
		frames:   frames,
		paths:    paths,
		duration: float64(sourceIndex) / fps,
		dir:      dir,
	}, nil
}

// Session is one staged acquisition. It lives until Close, which
// removes every staged artifact.
type Session struct {
	frames   []model.Frame
	paths    []string
	duration float64
	dir      string

	closeOnce sync.Once
	closeErr  error
}

// Frames returns the sampled frame index.
func (s *Session) Frames() []model.Frame { return s.frames }

// ImagePath returns the staged image for the ith sampled frame.
func (s *Session) ImagePath(i int) string {
	if i < 0 || i >= len(s.paths) {
		return ""
	}
	return s.paths[i]
}

// Duration reports the decoded video length in seconds.
func (s *Session) Duration() float64 { return s.duration }

// Close removes the staging directory. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = os.RemoveAll(s.dir)
	})
	return s.closeErr
}
