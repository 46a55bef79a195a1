// Package variance applies the forward-only timestamp jitter and
// monotonic-uniqueness repair that turns a freshly generated per-activity
// event batch into the sink-ready stream (spec §4.6).
package variance

import (
	"time"

	"github.com/krukkeniels/badgesim/internal/eventgen"
	"github.com/krukkeniels/badgesim/internal/simrand"
)

// maxJitter bounds the forward-only per-event timestamp offset.
const maxJitter = 300 * time.Second

// minGap and maxGap bound the Δ used to repair a non-increasing pair
// during the uniqueness walk.
const (
	minGap = 1 * time.Millisecond
	maxGap = 500 * time.Millisecond
)

// Apply jitters every event's timestamp forward by a uniform offset in
// [0, 300s], drops any event whose jittered timestamp crosses into the
// next UTC calendar day, then walks the remaining events in order and
// repairs any adjacent pair that is no longer strictly increasing by
// advancing the later one by a uniform [1,500ms] gap, dropping it instead
// when that gap would carry it into the next UTC calendar day.
//
// Variance is forward-only, so the uniqueness-repair walk is itself
// stable under a second pass: repairing never produces a timestamp the
// jitter step could have dropped.
func Apply(rng *simrand.Source, events []eventgen.Event) []eventgen.Event {
	kept := make([]eventgen.Event, 0, len(events))
	for _, ev := range events {
		offset := time.Duration(rng.DurationJitter(0, int64(maxJitter)))
		jittered := ev.Timestamp.Add(offset)
		if crossesDay(ev.Timestamp, jittered) {
			continue
		}
		ev.Timestamp = jittered
		kept = append(kept, ev)
	}

	out := kept[:0]
	for _, ev := range kept {
		if n := len(out); n > 0 && !ev.Timestamp.After(out[n-1].Timestamp) {
			gap := time.Duration(rng.DurationJitter(int64(minGap), int64(maxGap)))
			repaired := out[n-1].Timestamp.Add(gap)
			if crossesDay(out[n-1].Timestamp, repaired) {
				continue
			}
			ev.Timestamp = repaired
		}
		out = append(out, ev)
	}

	return out
}

func crossesDay(original, jittered time.Time) bool {
	origUTC := original.UTC()
	jitUTC := jittered.UTC()
	oy, om, od := origUTC.Date()
	jy, jm, jd := jitUTC.Date()
	return oy != jy || om != jm || od != jd
}
