package quality

import (
	"math"
	"strings"

	"github.com/jonathan/pressroom/internal/types"
)

// maxPhraseDensity is the occurrence density above which phrase use reads as
// keyword stuffing and costs coverage points.
const maxPhraseDensity = 0.03

// scoreCoverage measures how well the content uses the topic's phrases.
// Half the score is the main phrase being present at sane density; half is
// the fraction of secondary phrases that appear.
func scoreCoverage(doc *document, topic types.TopicCluster) float64 {
	score := 0.0

	main := strings.ToLower(topic.MainPhrase)
	if main != "" && strings.Contains(doc.lower, main) {
		score += 50

		occurrences := strings.Count(doc.lower, main)
		if len(doc.words) > 0 {
			density := float64(occurrences*wordCount(main)) / float64(len(doc.words))
			if density > maxPhraseDensity {
				score -= 15
			}
		}
	}

	if len(topic.SecondaryPhrases) == 0 {
		// Nothing more to ask for.
		score += 50
	} else {
		found := 0
		for _, phrase := range topic.SecondaryPhrases {
			if strings.Contains(doc.lower, strings.ToLower(phrase)) {
				found++
			}
		}
		score += 50 * float64(found) / float64(len(topic.SecondaryPhrases))
	}

	return clamp(score)
}

// scoreReadability blends average sentence length, paragraph length, and
// vocabulary diversity.
func scoreReadability(doc *document) float64 {
	if len(doc.sentences) == 0 {
		return 0
	}

	// Sentence length: full marks between 8 and 24 words, falling off
	// linearly outside that band.
	totalWords := 0
	for _, s := range doc.sentences {
		totalWords += wordCount(s)
	}
	avgSentence := float64(totalWords) / float64(len(doc.sentences))
	score := 40 * bandScore(avgSentence, 8, 24, 4, 45)

	// Paragraph length: full marks up to 120 words.
	if len(doc.paragraphs) > 0 {
		paraWords := 0
		for _, p := range doc.paragraphs {
			paraWords += wordCount(p)
		}
		avgPara := float64(paraWords) / float64(len(doc.paragraphs))
		switch {
		case avgPara <= 120:
			score += 30
		case avgPara <= 250:
			score += 30 * (250 - avgPara) / 130
		}
	}

	// Vocabulary diversity: distinct-to-total ratio over the first 500
	// words, full marks at 0.4 and above.
	sample := doc.words
	if len(sample) > 500 {
		sample = sample[:500]
	}
	if len(sample) > 0 {
		distinct := make(map[string]struct{}, len(sample))
		for _, w := range sample {
			distinct[w] = struct{}{}
		}
		diversity := float64(len(distinct)) / float64(len(sample))
		score += 30 * math.Min(diversity/0.4, 1)
	}

	return clamp(score)
}

// scoreStructure checks headings, FAQ presence, and links against what the
// slot's content type expects.
func scoreStructure(doc *document, slot *types.ContentSlot) float64 {
	score := 0.0

	requiredHeadings := 2
	if slot.ContentType == types.ContentTypeLongform {
		requiredHeadings = 4
	}
	score += 40 * math.Min(float64(len(doc.headings))/float64(requiredHeadings), 1)

	if slot.ContentType == types.ContentTypeLongform {
		for _, h := range doc.headings {
			lower := strings.ToLower(h)
			if strings.Contains(lower, "faq") || strings.Contains(lower, "frequently asked") {
				score += 30
				break
			}
		}
	} else {
		score += 30
	}

	if doc.hasLink {
		score += 30
	} else {
		score += 10
	}

	return clamp(score)
}

// genericPhrases are fillers that mark machine-sounding prose. Each distinct
// phrase found costs points.
var genericPhrases = []string{
	"in today's fast-paced world",
	"in today's digital age",
	"it's important to note that",
	"it is important to note that",
	"when it comes to",
	"at the end of the day",
	"delve into",
	"delving into",
	"in conclusion,",
	"unlock the secrets",
	"game-changer",
	"look no further",
	"the world of",
	"ever-evolving",
	"revolutionize the way",
	"a testament to",
}

// scoreNaturalness starts from 100 and deducts for generic filler phrases and
// for robotically uniform sentence lengths.
func scoreNaturalness(doc *document) float64 {
	score := 100.0

	for _, phrase := range genericPhrases {
		if strings.Contains(doc.lower, phrase) {
			score -= 15
		}
	}

	// Low variance in sentence length reads as machine-generated.
	if len(doc.sentences) >= 5 {
		lengths := make([]float64, len(doc.sentences))
		mean := 0.0
		for i, s := range doc.sentences {
			lengths[i] = float64(wordCount(s))
			mean += lengths[i]
		}
		mean /= float64(len(lengths))

		variance := 0.0
		for _, l := range lengths {
			variance += (l - mean) * (l - mean)
		}
		variance /= float64(len(lengths))
		if math.Sqrt(variance) < 2 {
			score -= 20
		}
	}

	return clamp(score)
}

// scoreDepth measures substance: word count against the slot target, plus
// lists and concrete figures.
func scoreDepth(doc *document, slot *types.ContentSlot) float64 {
	score := 0.0

	target := slot.TargetWords
	if target <= 0 {
		target = 1000
	}
	ratio := float64(len(doc.words)) / float64(target)
	score += 50 * math.Min(ratio/0.8, 1)

	if doc.hasList {
		score += 25
	}
	if doc.hasDigits {
		score += 25
	}

	return clamp(score)
}

// bandScore returns 1 inside [lo, hi], falling linearly to 0 at min and max.
func bandScore(v, lo, hi, min, max float64) float64 {
	switch {
	case v >= lo && v <= hi:
		return 1
	case v < lo && v > min:
		return (v - min) / (lo - min)
	case v > hi && v < max:
		return (max - v) / (max - hi)
	default:
		return 0
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
