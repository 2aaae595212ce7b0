package levelgraph

import "slices"

// Level is a single lesson+quiz node on the map.
type Level struct {
	ID    int
	Order int // position along the map path, ascending from the start
	Name  string
	Theme string

	// VideoID identifies the lesson video. Empty means the level has no
	// lesson step and the quiz is available as soon as an attempt starts.
	VideoID string

	// PassThreshold is the minimum quiz score (0-100) needed to complete the
	// level. Zero means the engine's configured default applies.
	PassThreshold int

	Prerequisites []int
}

// HasLesson reports whether the level gates its quiz behind a lesson video.
func (l Level) HasLesson() bool {
	return l.VideoID != ""
}

// Threshold returns the level's pass threshold, or def when none is set.
func (l Level) Threshold(def int) int {
	if l.PassThreshold > 0 {
		return l.PassThreshold
	}
	return def
}

func (l Level) clone() Level {
	l.Prerequisites = slices.Clone(l.Prerequisites)
	return l
}
