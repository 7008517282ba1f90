package player

import (
	"math/rand"

	"github.com/cockroachdb/errors"

	"github.com/osa030/grooves/internal/domain/playlist"
)

// GenerateOrder returns a random permutation of 0..count-1.
// If start is set, it is placed first and the remaining indices are shuffled.
func GenerateOrder(rng *rand.Rand, count int, start *int) ([]int, error) {
	if count <= 0 {
		return nil, playlist.ErrEmptyPlaylist
	}
	if start != nil && (*start < 0 || *start >= count) {
		return nil, errors.Wrapf(ErrInvalidElementIndex, "index %d, %d elements", *start, count)
	}

	order := make([]int, 0, count)
	if start != nil {
		order = append(order, *start)
	}
	for i := 0; i < count; i++ {
		if start != nil && i == *start {
			continue
		}
		order = append(order, i)
	}

	rest := order
	if start != nil {
		rest = order[1:]
	}
	rng.Shuffle(len(rest), func(i, j int) {
		rest[i], rest[j] = rest[j], rest[i]
	})

	return order, nil
}
