package service

import (
	"context"
	"errors"
)

// Pipeline-level error kinds. These abort a run, release staged
// artifacts and leave no partial result.
var (
	// ErrUnreadableVideo reports a source that cannot be decoded or
	// yields zero frames.
	ErrUnreadableVideo = errors.New("unreadable video")

	// ErrInsufficientPoseData reports fewer confident pose frames than
	// the configured minimum.
	ErrInsufficientPoseData = errors.New("insufficient pose data")

	// ErrStageTimeout reports a stage exceeding its configured budget.
	// Retryable by the caller.
	ErrStageTimeout = errors.New("stage timeout")

	// ErrBackpressure reports a full analysis queue.
	ErrBackpressure = errors.New("analysis queue full")

	// ErrDuplicate reports a resubmitted analysis ID.
	ErrDuplicate = errors.New("duplicate analysis")

	// ErrNotFound reports an unknown analysis ID.
	ErrNotFound = errors.New("analysis not found")
)

// FailureReason maps a pipeline error to a stable label for metrics and
// stored failure records.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnreadableVideo):
		return "unreadable_video"
	case errors.Is(err, ErrInsufficientPoseData):
		return "insufficient_pose_data"
	case errors.Is(err, ErrStageTimeout):
		return "stage_timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "internal"
	}
}
