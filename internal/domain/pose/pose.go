// Package pose defines the pose-estimation capability consumed by the
// pipeline and the keypoint vocabulary shared by all stages.
//
// The inference backend is injected as an interface so any model
// implementation satisfies it; production runs must be reproducible, so
// backends may not introduce hidden randomness.
package pose

import (
	"context"

	"github.com/strokelab/rallylens/internal/domain/model"
)

// Keypoint names follow the MoveNet/COCO 17-landmark convention.
// Coordinates are normalized to [0,1] with the origin at the top-left,
// so a smaller Y means higher in the frame.
const (
	Nose          = "nose"
	LeftEye       = "left_eye"
	RightEye      = "right_eye"
	LeftEar       = "left_ear"
	RightEar      = "right_ear"
	LeftShoulder  = "left_shoulder"
	RightShoulder = "right_shoulder"
	LeftElbow     = "left_elbow"
	RightElbow    = "right_elbow"
	LeftWrist     = "left_wrist"
	RightWrist    = "right_wrist"
	LeftHip       = "left_hip"
	RightHip      = "right_hip"
	LeftKnee      = "left_knee"
	RightKnee     = "right_knee"
	LeftAnkle     = "left_ankle"
	RightAnkle    = "right_ankle"
)

// KeypointNames lists all landmarks in canonical order.
var KeypointNames = []string{ //nolint:gochecknoglobals // fixed landmark vocabulary
	Nose, LeftEye, RightEye, LeftEar, RightEar,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow,
	LeftWrist, RightWrist, LeftHip, RightHip,
	LeftKnee, RightKnee, LeftAnkle, RightAnkle,
}

// FrameImage hands a staged frame image to a backend.
type FrameImage struct {
	Frame model.Frame
	Path  string
}

// Backend estimates a pose from one frame image. Implementations must
// honor ctx for cancellation and be independent across frames.
type Backend interface {
	Estimate(ctx context.Context, img FrameImage) (model.PoseFrame, error)
}

// Estimator wraps a Backend, stamping frame identity and flagging
// low-confidence poses without dropping them.
type Estimator struct {
	backend       Backend
	minConfidence float64
}

// EstimatorOption applies a configuration option to the Estimator.
type EstimatorOption func(*Estimator)

// WithMinConfidence sets the confidence below which a pose frame is
// flagged as low quality.
func WithMinConfidence(min float64) EstimatorOption {
	return func(e *Estimator) {
		if min >= 0 && min <= 1 {
			e.minConfidence = min
		}
	}
}

// Default estimator configuration.
const defaultMinConfidence = 0.35

// NewEstimator creates an Estimator around a backend.
func NewEstimator(backend Backend, opts ...EstimatorOption) *Estimator {
	e := &Estimator{
		backend:       backend,
		minConfidence: defaultMinConfidence,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Estimate runs the backend for one frame. The frame identity on the
// returned PoseFrame always matches the input frame, and the overall
// confidence is the mean keypoint confidence when the backend did not
// set one.
func (e *Estimator) Estimate(ctx context.Context, img FrameImage) (model.PoseFrame, error) {
	pf, err := e.backend.Estimate(ctx, img)
	if err != nil {
		return model.PoseFrame{}, err
	}

	pf.Frame = img.Frame
	if pf.Confidence == 0 && len(pf.Keypoints) > 0 {
		pf.Confidence = meanConfidence(pf.Keypoints)
	}
	pf.LowConfidence = pf.Confidence < e.minConfidence
	return pf, nil
}

// MinConfidence exposes the configured threshold.
func (e *Estimator) MinConfidence() float64 {
	return e.minConfidence
}

func meanConfidence(kps []model.PoseKeypoint) float64 {
	var sum float64
	for _, kp := range kps {
		sum += kp.Confidence
	}
	return sum / float64(len(kps))
}
