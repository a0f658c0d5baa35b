package quality

import (
	"hash/fnv"
	"math/bits"
	"strings"

	"github.com/jonathan/pressroom/internal/types"
)

// UniquenessThreshold is the Hamming distance at or below which two
// fingerprints are considered near-duplicates.
const UniquenessThreshold = 3

// Fingerprint computes a 64-bit simhash of the content over word bigrams.
// Near-identical documents produce fingerprints with a small Hamming
// distance.
func Fingerprint(content string) uint64 {
	words := strings.Fields(strings.ToLower(content))
	if len(words) == 0 {
		return 0
	}

	var counters [64]int
	accumulate := func(feature string) {
		h := fnv.New64a()
		_, _ = h.Write([]byte(feature))
		sum := h.Sum64()
		for i := 0; i < 64; i++ {
			if sum&(1<<uint(i)) != 0 {
				counters[i]++
			} else {
				counters[i]--
			}
		}
	}

	for i, w := range words {
		accumulate(w)
		if i+1 < len(words) {
			accumulate(w + " " + words[i+1])
		}
	}

	var fingerprint uint64
	for i := 0; i < 64; i++ {
		if counters[i] > 0 {
			fingerprint |= 1 << uint(i)
		}
	}
	return fingerprint
}

// HammingDistance counts differing bits between two fingerprints.
func HammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// UniquenessWarning reports that new content is suspiciously close to a
// prior publication. It is advisory, never a block.
type UniquenessWarning struct {
	Distance int
	Against  types.PublicationRecord
}

// CheckUniqueness compares a fingerprint against recent publications for the
// slot and returns a warning for the closest near-duplicate, or nil.
func CheckUniqueness(fingerprint uint64, recent []types.PublicationRecord) *UniquenessWarning {
	var closest *UniquenessWarning
	for _, record := range recent {
		if record.ContentHash == 0 {
			continue
		}
		distance := HammingDistance(fingerprint, record.ContentHash)
		if distance > UniquenessThreshold {
			continue
		}
		if closest == nil || distance < closest.Distance {
			closest = &UniquenessWarning{Distance: distance, Against: record}
		}
	}
	return closest
}
