package pipeline

import (
	"math"
	"sort"

	"whisperasr/internal/domain"
)

// AssignSpeakers labels each segment with the speaker of the turn it overlaps
// most. Ties keep the earlier turn and segments without any overlap get
// speaker 0. Turn labels become dense integers in the order they are first
// chosen. The input slice is not modified.
func AssignSpeakers(segments []domain.Segment, turns []domain.Turn) []domain.Segment {
	out := make([]domain.Segment, len(segments))
	copy(out, segments)

	ids := map[string]int{}
	for i := range out {
		best := -1
		bestOverlap := 0.0
		for j, turn := range turns {
			overlap := math.Max(0, math.Min(out[i].End, turn.End)-math.Max(out[i].Start, turn.Start))
			if overlap > bestOverlap {
				best, bestOverlap = j, overlap
			}
		}

		if best < 0 {
			out[i].Speaker = 0
			continue
		}

		label := turns[best].Speaker
		id, ok := ids[label]
		if !ok {
			id = len(ids)
			ids[label] = id
		}
		out[i].Speaker = id
	}
	return out
}

// SpeakerSet returns the distinct speaker ids of segments in ascending order.
func SpeakerSet(segments []domain.Segment) []int {
	seen := map[int]bool{}
	speakers := make([]int, 0)
	for _, seg := range segments {
		if !seen[seg.Speaker] {
			seen[seg.Speaker] = true
			speakers = append(speakers, seg.Speaker)
		}
	}
	sort.Ints(speakers)
	return speakers
}
