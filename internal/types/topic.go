package types

// TopicCluster is a group of related search phrases treated as one generation
// target. Clusters are produced by upstream keyword tooling and are immutable.
type TopicCluster struct {
	Name              string   `json:"name"`
	LongformEligible  bool     `json:"longform_eligible"`
	TotalVolume       int      `json:"total_volume"`
	AverageDifficulty float64  `json:"average_difficulty"`
	MainPhrase        string   `json:"main_phrase"`
	SecondaryPhrases  []string `json:"secondary_phrases,omitempty"`
}

// EligibleFor reports whether the cluster may serve content of the given type.
// Every cluster can serve short-form; long-form requires explicit eligibility.
func (c *TopicCluster) EligibleFor(ct ContentType) bool {
	if ct == ContentTypeLongform {
		return c.LongformEligible
	}
	return true
}
