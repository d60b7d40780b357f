package shot

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/strokelab/rallylens/internal/domain/model"
	"github.com/strokelab/rallylens/internal/domain/pose"
)

const frameInterval = 0.2

// neutralFrame builds a confident standing pose at time t, with selected
// keypoints repositioned.
func neutralFrame(t float64, overrides map[string][2]float64) model.PoseFrame {
	base := map[string][2]float64{
		pose.Nose:          {0.50, 0.20},
		pose.LeftShoulder:  {0.56, 0.40},
		pose.RightShoulder: {0.44, 0.40},
		pose.LeftElbow:     {0.58, 0.50},
		pose.RightElbow:    {0.42, 0.50},
		pose.LeftWrist:     {0.60, 0.60},
		pose.RightWrist:    {0.40, 0.60},
		pose.LeftHip:       {0.54, 0.62},
		pose.RightHip:      {0.46, 0.62},
		pose.LeftKnee:      {0.54, 0.78},
		pose.RightKnee:     {0.46, 0.78},
		pose.LeftAnkle:     {0.55, 0.92},
		pose.RightAnkle:    {0.45, 0.92},
	}
	for name, xy := range overrides {
		base[name] = xy
	}

	kps := make([]model.PoseKeypoint, 0, len(base))
	for _, name := range pose.KeypointNames {
		xy, ok := base[name]
		if !ok {
			continue
		}
		kps = append(kps, model.PoseKeypoint{Name: name, X: xy[0], Y: xy[1], Confidence: 0.9})
	}
	return model.PoseFrame{
		Frame:      model.Frame{Index: int(t / frameInterval), Timestamp: t},
		Keypoints:  kps,
		Confidence: 0.9,
	}
}

func TestDetectorClassification(t *testing.T) {
	Convey("Given a detector with defaults", t, func() {
		d := NewDetector()
		ctx := context.Background()

		Convey("When the wrist snaps overhead with the elbow trailing below", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.42, 0.30},
					pose.RightElbow: {0.44, 0.38},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then exactly one serve is detected at the contact frame", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Type, ShouldEqual, model.ShotServe)
				So(shots[0].Timestamp, ShouldEqual, frameInterval)
				So(shots[0].ShotID, ShouldNotBeEmpty)
				So(shots[0].Speed, ShouldBeGreaterThan, 0)
				So(shots[0].Quality, ShouldBeBetweenOrEqual, 0, 100)
			})
		})

		Convey("When the wrist crosses the body below the shoulder", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.20, 0.60},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then the shot classifies as a backhand", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Type, ShouldEqual, model.ShotBackhand)
			})
		})

		Convey("When the arm stays compact below the shoulder", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.60, 0.52},
					pose.RightElbow: {0.58, 0.50},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then the shot classifies as a dink", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Type, ShouldEqual, model.ShotDink)
			})
		})

		Convey("When contact is overhead with the elbow above the wrist", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.60, 0.30},
					pose.RightElbow: {0.58, 0.26},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then the shot classifies as a volley", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Type, ShouldEqual, model.ShotVolley)
			})
		})

		Convey("When the swing is extended on the open side", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.75, 0.60},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then the shot falls back to a forehand", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Type, ShouldEqual, model.ShotForehand)
			})
		})
	})
}

func TestDetectorTriggering(t *testing.T) {
	Convey("Given a detector with defaults", t, func() {
		d := NewDetector()
		ctx := context.Background()

		Convey("When wrist motion stays below the trigger threshold", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.42, 0.59},
				}),
				neutralFrame(2*frameInterval, map[string][2]float64{
					pose.RightWrist: {0.40, 0.60},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then no shots are detected", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldBeEmpty)
			})
		})

		Convey("When two triggers land inside the debounce window", func() {
			swing := map[string][2]float64{
				pose.RightWrist: {0.42, 0.30},
				pose.RightElbow: {0.44, 0.38},
			}
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, swing),
				neutralFrame(2*frameInterval, nil),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then only the first trigger produces a shot", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Timestamp, ShouldEqual, frameInterval)
			})
		})

		Convey("When the wrist keypoint confidence is unusable", func() {
			swung := neutralFrame(frameInterval, map[string][2]float64{
				pose.RightWrist: {0.42, 0.30},
			})
			for i := range swung.Keypoints {
				if swung.Keypoints[i].Name == pose.RightWrist {
					swung.Keypoints[i].Confidence = 0.1
				}
			}
			frames := []model.PoseFrame{neutralFrame(0, nil), swung}
			shots, err := d.Detect(ctx, frames)

			Convey("Then the pair contributes no shot", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldBeEmpty)
			})
		})

		Convey("When the context is already canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			frames := []model.PoseFrame{neutralFrame(0, nil), neutralFrame(frameInterval, nil)}

			_, err := d.Detect(canceled, frames)

			Convey("Then detection reports the cancellation", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestDetectorFormScoring(t *testing.T) {
	Convey("Given a detector with defaults", t, func() {
		d := NewDetector()
		ctx := context.Background()

		Convey("When a shot scores below the clean quality threshold", func() {
			// Dropped elbow and compact arm keep the quality down.
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.60, 0.52},
					pose.RightElbow: {0.58, 0.50},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then it carries at least one error or improvement", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				if shots[0].Quality < 70 {
					So(len(shots[0].Errors)+len(shots[0].Improvements), ShouldBeGreaterThan, 0)
				}
			})
		})

		Convey("When options adjust the trigger threshold", func() {
			strict := NewDetector(WithThreshold(0.5))
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.RightWrist: {0.42, 0.30},
					pose.RightElbow: {0.44, 0.38},
				}),
			}
			shots, err := strict.Detect(ctx, frames)

			Convey("Then the same motion no longer triggers", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldBeEmpty)
			})
		})

		Convey("When an invalid option value is applied", func() {
			loose := NewDetector(WithThreshold(-1), WithCleanQuality(150), WithMinShotGap(0), WithDominantHand("ambidextrous"))

			Convey("Then defaults are kept", func() {
				So(loose.threshold, ShouldEqual, defaultThreshold)
				So(loose.cleanQuality, ShouldEqual, defaultCleanQuality)
				So(loose.minShotGap, ShouldEqual, defaultMinShotGapSec)
				So(loose.dominantHand, ShouldEqual, "right")
			})
		})
	})
}

func TestDetectorShotGap(t *testing.T) {
	swing := map[string][2]float64{
		pose.RightWrist: {0.42, 0.30},
		pose.RightElbow: {0.44, 0.38},
	}
	frames := []model.PoseFrame{
		neutralFrame(0, nil),
		neutralFrame(frameInterval, swing),
		neutralFrame(2*frameInterval, nil),
		neutralFrame(3*frameInterval, nil),
		neutralFrame(4*frameInterval, swing),
	}

	Convey("Given two swings outside the default debounce window", t, func() {
		ctx := context.Background()

		Convey("When the default detector scans them", func() {
			shots, err := NewDetector().Detect(ctx, frames)

			Convey("Then both swings produce shots", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 2)
				So(shots[0].Timestamp, ShouldEqual, frameInterval)
				So(shots[1].Timestamp, ShouldEqual, 4*frameInterval)
			})
		})

		Convey("When the gap is widened past both swings", func() {
			shots, err := NewDetector(WithMinShotGap(2.0)).Detect(ctx, frames)

			Convey("Then only the first swing produces a shot", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Timestamp, ShouldEqual, frameInterval)
			})
		})
	})
}

func TestDetectorDominantHand(t *testing.T) {
	Convey("Given a left-handed detector", t, func() {
		d := NewDetector(WithDominantHand("left"))
		ctx := context.Background()

		Convey("When the left wrist crosses the body", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.LeftWrist: {0.85, 0.60},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then the shot classifies as a backhand", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Type, ShouldEqual, model.ShotBackhand)
			})
		})

		Convey("When the left wrist extends on the open side", func() {
			frames := []model.PoseFrame{
				neutralFrame(0, nil),
				neutralFrame(frameInterval, map[string][2]float64{
					pose.LeftWrist: {0.30, 0.60},
				}),
			}
			shots, err := d.Detect(ctx, frames)

			Convey("Then the shot classifies as a forehand", func() {
				So(err, ShouldBeNil)
				So(shots, ShouldHaveLength, 1)
				So(shots[0].Type, ShouldEqual, model.ShotForehand)
			})
		})
	})
}
