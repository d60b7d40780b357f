// Package inference runs pose estimation through an external model
// process speaking a line-oriented protocol: one staged image path in,
// one JSON pose line out.
package inference

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
	"github.com/strokelab/rallylens/pkg/logger"
)

// maxPoseLine bounds one JSON pose response.
const maxPoseLine = 1 << 20

// Sentinel kinds for inference errors.
var (
	ErrNoCommand     = errors.New("no estimator command configured")
	ErrBackendClosed = errors.New("estimator process closed")
)

// poseResponse mirrors the line schema emitted by the model process.
type poseResponse struct {
	Keypoints  []model.PoseKeypoint `json:"keypoints"`
	Confidence float64              `json:"confidence"`
	Error      string               `json:"error,omitempty"`
}

// ExecBackend drives one long-lived estimator process. Round trips are
// serialized; concurrent callers queue on the process.
type ExecBackend struct {
	command []string

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Scanner
	closed bool

	logger logger.Logger
}

// Option applies a configuration option to the ExecBackend.
type Option func(*ExecBackend)

// WithLogger sets a custom logger for the backend.
func WithLogger(log logger.Logger) Option {
	return func(b *ExecBackend) {
		if log != nil {
			b.logger = log
		}
	}
}

// New creates an exec backend around the given estimator command.
func New(command []string, opts ...Option) *ExecBackend {
	b := &ExecBackend{command: command}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("inference")
	}
	return b
}

// Start launches the estimator process. The process lives until Close
// or ctx cancellation.
func (b *ExecBackend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startLocked(ctx)
}

func (b *ExecBackend) startLocked(ctx context.Context) error {
	if b.cmd != nil {
		return nil
	}
	if len(b.command) == 0 {
		return ErrNoCommand
	}

	cmd := exec.CommandContext(ctx, b.command[0], b.command[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("estimator stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("estimator stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start estimator %q: %w", b.command[0], err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxPoseLine)

	b.cmd = cmd
	b.stdin = stdin
	b.stdout = scanner
	b.logger.Info(ctx, "estimator process started", logger.String("command", b.command[0]))
	return nil
}

// Estimate sends one staged image path and reads one pose line back.
func (b *ExecBackend) Estimate(ctx context.Context, img pose.FrameImage) (model.PoseFrame, error) {
	if err := ctx.Err(); err != nil {
		return model.PoseFrame{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return model.PoseFrame{}, ErrBackendClosed
	}
	if err := b.startLocked(ctx); err != nil {
		return model.PoseFrame{}, err
	}

	if _, err := fmt.Fprintln(b.stdin, img.Path); err != nil {
		return model.PoseFrame{}, fmt.Errorf("write to estimator: %w", err)
	}

	if !b.stdout.Scan() {
		if err := b.stdout.Err(); err != nil {
			return model.PoseFrame{}, fmt.Errorf("read from estimator: %w", err)
		}
		return model.PoseFrame{}, ErrBackendClosed
	}

	var resp poseResponse
	if err := json.Unmarshal(b.stdout.Bytes(), &resp); err != nil {
		return model.PoseFrame{}, fmt.Errorf("decode pose line: %w", err)
	}
	if resp.Error != "" {
		return model.PoseFrame{}, fmt.Errorf("estimator: %s", resp.Error)
	}

	return model.PoseFrame{
		Keypoints:  resp.Keypoints,
		Confidence: resp.Confidence,
	}, nil
}

// Close stops the estimator process.
func (b *ExecBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed || b.cmd == nil {
		b.closed = true
		return nil
	}
	b.closed = true

	_ = b.stdin.Close()
	if err := b.cmd.Wait(); err != nil {
		return fmt.Errorf("estimator exit: %w", err)
	}
	return nil
}
