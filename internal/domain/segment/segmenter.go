// Package segment partitions the analysis timeline into labeled spans.
//
// Boundaries come from shot-type transitions and inter-shot gaps. The
// output invariant: segments are contiguous, non-overlapping, ordered and
// jointly cover [0, videoDuration].
package segment

import (
	"github.com/strokelab/rallylens/internal/domain/model"
)

// defaultRallyTimeout closes the current segment when no shot lands
// within it. Tunable, not a contract.
const defaultRallyTimeout = 3.0

// Segmenter builds the labeled timeline.
type Segmenter struct {
	rallyTimeout float64
}

// Option applies a configuration option to the Segmenter.
type Option func(*Segmenter)

// WithRallyTimeout sets the inter-shot gap, in seconds, that closes a
// rally segment.
func WithRallyTimeout(seconds float64) Option {
	return func(s *Segmenter) {
		if seconds > 0 {
			s.rallyTimeout = seconds
		}
	}
}

// NewSegmenter creates a segmenter with configuration options.
func NewSegmenter(opts ...Option) *Segmenter {
	s := &Segmenter{rallyTimeout: defaultRallyTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Segment partitions [0, videoDuration] using the ordered shot list.
// A serve opens a new segment; a gap longer than the rally timeout closes
// the current one with a transition span in between. Segment quality is
// the mean quality of shots whose timestamp falls in [start, end).
func (s *Segmenter) Segment(shots []model.ShotEvent, videoDuration float64) []model.VideoSegment {
	if videoDuration <= 0 {
		return nil
	}
	if len(shots) == 0 {
		return []model.VideoSegment{{
			StartTime: 0,
			EndTime:   videoDuration,
			Type:      model.SegmentTransition,
			Quality:   0,
		}}
	}

	var segments []model.VideoSegment
	cursor := 0.0
	openStart := -1.0
	openType := model.SegmentRally
	lastShotAt := 0.0

	closeOpen := func(end float64) {
		if openStart < 0 {
			return
		}
		segments = append(segments, model.VideoSegment{
			StartTime: openStart,
			EndTime:   end,
			Type:      openType,
		})
		cursor = end
		openStart = -1
	}

	for _, shot := range shots {
		if openStart >= 0 && shot.Timestamp-lastShotAt > s.rallyTimeout {
			// Rally went quiet; close it at the timeout boundary.
			closeOpen(min(lastShotAt+s.rallyTimeout, videoDuration))
		}

		if openStart < 0 {
			// Idle time before play resumes is a transition span.
			if shot.Timestamp > cursor {
				segments = append(segments, model.VideoSegment{
					StartTime: cursor,
					EndTime:   shot.Timestamp,
					Type:      model.SegmentTransition,
				})
				cursor = shot.Timestamp
			}
			openStart = shot.Timestamp
			openType = segmentTypeFor(shot)
		} else if shot.Type == model.ShotServe {
			// A serve always opens a fresh segment.
			closeOpen(shot.Timestamp)
			openStart = shot.Timestamp
			openType = model.SegmentServe
		} else if openType == model.SegmentServe {
			// First non-serve shot turns the serve span into a rally.
			openType = model.SegmentRally
		} else if shot.Type == model.ShotVolley || shot.Type == model.ShotDink {
			openType = model.SegmentNetExchange
		}
		lastShotAt = shot.Timestamp
	}

	closeOpen(videoDuration)
	if cursor < videoDuration {
		segments = append(segments, model.VideoSegment{
			StartTime: cursor,
			EndTime:   videoDuration,
			Type:      model.SegmentTransition,
		})
	}

	scoreSegments(segments, shots)
	return segments
}

// segmentTypeFor labels the span a shot opens.
func segmentTypeFor(shot model.ShotEvent) model.SegmentType {
	if shot.Type == model.ShotServe {
		return model.SegmentServe
	}
	return model.SegmentRally
}

// scoreSegments assigns each segment the mean quality of its shots and
// records the shot IDs it covers.
func scoreSegments(segments []model.VideoSegment, shots []model.ShotEvent) {
	for i := range segments {
		var sum float64
		var ids []string
		for _, shot := range shots {
			if shot.Timestamp >= segments[i].StartTime && shot.Timestamp < segments[i].EndTime {
				sum += shot.Quality
				ids = append(ids, shot.ShotID)
			}
		}
		if len(ids) > 0 {
			segments[i].Quality = sum / float64(len(ids))
		}
		segments[i].ShotIDs = ids
	}
}
