// Package rotation selects the next topic cluster for a content slot,
// enforcing per content-type cooldowns and minimum-pool rules. Selection is
// deterministic given the same publication history so tests can assert exact
// picks.
package rotation

import (
	"fmt"
	"sort"
	"time"

	"github.com/jonathan/pressroom/internal/types"
)

// ErrNoEligibleTopics is returned when the slot's pool contains no cluster
// eligible for the slot's content type.
type ErrNoEligibleTopics struct {
	SlotName string
}

func (e *ErrNoEligibleTopics) Error() string {
	return fmt.Sprintf("slot %q has no topic clusters eligible for its content type", e.SlotName)
}

// PoolWarning signals that the eligible pool is below the slot's minimum
// size. Selection still proceeds; callers should surface the warning.
type PoolWarning struct {
	PoolSize int
	Minimum  int
}

func (w *PoolWarning) String() string {
	return fmt.Sprintf("topic pool has %d clusters, below minimum %d", w.PoolSize, w.Minimum)
}

// Selection is the rotator's pick plus any advisory conditions.
type Selection struct {
	Topic types.TopicCluster
	// UsedLRUFallback is true when every eligible cluster was on cooldown
	// and the least-recently-used one was chosen instead.
	UsedLRUFallback bool
	// PoolWarning is non-nil when the eligible pool is below the minimum.
	PoolWarning *PoolWarning
}

// SelectNext picks the next topic cluster for the slot. history is the slot's
// publication record list, newest first; cooldowns only consider records
// matching the slot's content type, so long-form and short-form rotate
// independently.
func SelectNext(slot *types.ContentSlot, history []types.PublicationRecord, now time.Time) (*Selection, error) {
	eligible := make([]types.TopicCluster, 0, len(slot.Topics))
	for _, cluster := range slot.Topics {
		if cluster.EligibleFor(slot.ContentType) {
			eligible = append(eligible, cluster)
		}
	}
	if len(eligible) == 0 {
		return nil, &ErrNoEligibleTopics{SlotName: slot.Name}
	}

	lastUsed := lastUseTimes(slot, history)
	cutoff := now.Add(-slot.EffectiveCooldown())

	available := make([]types.TopicCluster, 0, len(eligible))
	for _, cluster := range eligible {
		if used, ok := lastUsed[cluster.MainPhrase]; ok && used.After(cutoff) {
			continue
		}
		available = append(available, cluster)
	}

	sel := &Selection{}
	if len(available) > 0 {
		sortByPreference(available)
		sel.Topic = available[0]
	} else {
		// Entire pool on cooldown: fall back to the least-recently-used
		// cluster, ties broken by highest volume.
		sel.Topic = leastRecentlyUsed(eligible, lastUsed)
		sel.UsedLRUFallback = true
	}

	if min := slot.EffectiveMinPool(); len(eligible) < min {
		sel.PoolWarning = &PoolWarning{PoolSize: len(eligible), Minimum: min}
	}
	return sel, nil
}

// lastUseTimes maps each main phrase to its most recent publication time,
// considering only records for the slot's content type.
func lastUseTimes(slot *types.ContentSlot, history []types.PublicationRecord) map[string]time.Time {
	lastUsed := make(map[string]time.Time)
	for _, rec := range history {
		if rec.ContentType != slot.ContentType {
			continue
		}
		if prev, ok := lastUsed[rec.Topic]; !ok || rec.CreatedAt.After(prev) {
			lastUsed[rec.Topic] = rec.CreatedAt
		}
	}
	return lastUsed
}

// sortByPreference orders clusters by volume descending, then difficulty
// ascending, then name for a stable total order.
func sortByPreference(clusters []types.TopicCluster) {
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].TotalVolume != clusters[j].TotalVolume {
			return clusters[i].TotalVolume > clusters[j].TotalVolume
		}
		if clusters[i].AverageDifficulty != clusters[j].AverageDifficulty {
			return clusters[i].AverageDifficulty < clusters[j].AverageDifficulty
		}
		return clusters[i].Name < clusters[j].Name
	})
}

func leastRecentlyUsed(clusters []types.TopicCluster, lastUsed map[string]time.Time) types.TopicCluster {
	best := clusters[0]
	bestTime, bestKnown := lastUsed[best.MainPhrase]
	for _, cluster := range clusters[1:] {
		used, known := lastUsed[cluster.MainPhrase]
		switch {
		case !known && bestKnown:
			best, bestTime, bestKnown = cluster, used, known
		case known == bestKnown && used.Before(bestTime):
			best, bestTime = cluster, used
		case known == bestKnown && used.Equal(bestTime) && cluster.TotalVolume > best.TotalVolume:
			best = cluster
		}
	}
	return best
}
