package pose

import (
	"math"

	"github.com/strokelab/rallylens/internal/domain/model"
)

// Distance returns the Euclidean distance between two keypoints in
// normalized coordinate units.
func Distance(a, b model.PoseKeypoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Midpoint returns the point halfway between two keypoints. The midpoint
// carries the lower of the two confidences.
func Midpoint(name string, a, b model.PoseKeypoint) model.PoseKeypoint {
	return model.PoseKeypoint{
		Name:       name,
		X:          (a.X + b.X) / 2,
		Y:          (a.Y + b.Y) / 2,
		Confidence: math.Min(a.Confidence, b.Confidence),
	}
}

// HipCenter returns the midpoint of the two hips, the pipeline's stable
// reference keypoint for movement analysis.
func HipCenter(pf model.PoseFrame) (model.PoseKeypoint, bool) {
	left, okL := pf.Keypoint(LeftHip)
	right, okR := pf.Keypoint(RightHip)
	if !okL || !okR {
		return model.PoseKeypoint{}, false
	}
	return Midpoint("hip_center", left, right), true
}

// ShoulderCenter returns the midpoint of the two shoulders.
func ShoulderCenter(pf model.PoseFrame) (model.PoseKeypoint, bool) {
	left, okL := pf.Keypoint(LeftShoulder)
	right, okR := pf.Keypoint(RightShoulder)
	if !okL || !okR {
		return model.PoseKeypoint{}, false
	}
	return Midpoint("shoulder_center", left, right), true
}

// Clamp bounds v to [0,100]. Shared by every metric producer.
func Clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
