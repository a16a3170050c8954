package run

import (
	"math/rand/v2"

	"github.com/hmcrab/bakeoff/internal/mode"
)

// ShuffleModes returns the batch modes in randomized order. Randomization
// keeps model caching, system warm-up, and resource contention from
// systematically favoring whichever mode always runs last.
func ShuffleModes() []mode.Mode {
	modes := make([]mode.Mode, len(mode.Batch))
	copy(modes, mode.Batch)
	rand.Shuffle(len(modes), func(i, j int) {
		modes[i], modes[j] = modes[j], modes[i]
	})
	return modes
}
