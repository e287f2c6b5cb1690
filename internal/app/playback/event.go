package playback

import "strings"

// ChangeType is a set of state fields touched by a single store operation.
type ChangeType uint8

const (
	ChangeQueue     ChangeType = 1 << iota // Queue replaced or cleared
	ChangeItem                             // Current item changed (index or queue)
	ChangePlaying                          // IsPlaying changed
	ChangeLooping                          // IsLooping changed
	ChangeShuffling                        // IsShuffling changed
	ChangeProgress                         // ProgressSeconds changed
)

var changeNames = []struct {
	t    ChangeType
	name string
}{
	{ChangeQueue, "queue"},
	{ChangeItem, "item"},
	{ChangePlaying, "playing"},
	{ChangeLooping, "looping"},
	{ChangeShuffling, "shuffling"},
	{ChangeProgress, "progress"},
}

// Has reports whether any of the given fields changed.
func (c ChangeType) Has(t ChangeType) bool {
	return c&t != 0
}

// String returns the changed field names joined by "|".
func (c ChangeType) String() string {
	if c == 0 {
		return "none"
	}
	var parts []string
	for _, n := range changeNames {
		if c.Has(n.t) {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "|")
}

// Change is delivered to observers after every state mutation.
type Change struct {
	Type  ChangeType
	State Snapshot // State right after the mutation
}
