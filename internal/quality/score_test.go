package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/pressroom/internal/types"
)

func testTopic() types.TopicCluster {
	return types.TopicCluster{
		Name:             "cold brew coffee",
		MainPhrase:       "cold brew coffee",
		SecondaryPhrases: []string{"coarse grind", "steep time"},
	}
}

func testSlot() *types.ContentSlot {
	return &types.ContentSlot{
		ContentType: types.ContentTypeLongform,
		TargetWords: 200,
	}
}

// goodArticle is structured, on-topic, varied prose with lists and figures.
func goodArticle() string {
	return `# The Complete Guide to Cold Brew Coffee

Cold brew coffee rewards patience. Unlike hot methods, it extracts slowly over many hours. The payoff is a smooth, low-acid concentrate that keeps for days.

## Choosing Your Beans

Start with a medium roast. A coarse grind matters more than origin here. Fine grounds over-extract and turn the batch muddy within 8 hours.

- Medium or dark roast beans
- A coarse grind, similar to raw sugar
- Filtered water at room temperature

## Getting the Steep Time Right

Steep time controls strength. Twelve hours yields a balanced cup, while 18 hours gives you a concentrate worth diluting. Taste at the 12 hour mark and decide. Some brewers push to 24 hours, but bitterness creeps in past 20.

## Serving and Storage

Dilute the concentrate 1:1 with water or milk. Stored in a sealed jar, [cold brew keeps](https://example.com/storage) for up to two weeks.

## FAQ

### How much coffee do I need?

Use a 1:8 ratio by weight. For a liter of water, that means 125 grams of beans.

### Can I use hot water to speed it up?

No. Heat changes the extraction chemistry entirely and you lose the smoothness that makes cold brew coffee worth the wait.`
}

func TestScore_GoodArticlePasses(t *testing.T) {
	score := Score(goodArticle(), testTopic(), testSlot())

	assert.GreaterOrEqual(t, score.Total, CritiqueThreshold,
		"well-formed on-topic article should score at least %d, got %d", CritiqueThreshold, score.Total)
	assert.True(t, score.Passed)
	assert.Greater(t, score.Breakdown.Coverage, 80.0)
	assert.Greater(t, score.Breakdown.Structure, 80.0)
}

func TestScore_OffTopicScoresLowCoverage(t *testing.T) {
	offTopic := strings.ReplaceAll(strings.ToLower(goodArticle()), "cold brew coffee", "sourdough bread")
	offTopic = strings.ReplaceAll(offTopic, "coarse grind", "starter culture")
	offTopic = strings.ReplaceAll(offTopic, "steep time", "proofing")

	score := Score(offTopic, testTopic(), testSlot())
	assert.Equal(t, 0.0, score.Breakdown.Coverage)
}

func TestScore_ThinContentBlocks(t *testing.T) {
	score := Score("Too short.", testTopic(), testSlot())
	assert.Equal(t, types.VerdictBlock, score.Verdict)
	assert.False(t, score.Passed)
}

func TestScore_GenericPhrasesLowerNaturalness(t *testing.T) {
	clean := Score(goodArticle(), testTopic(), testSlot())

	stuffed := goodArticle() + "\n\nIn today's fast-paced world, it's important to note that when it comes to coffee, you should delve into the world of brewing. At the end of the day, cold brew is a game-changer."
	worse := Score(stuffed, testTopic(), testSlot())

	assert.Less(t, worse.Breakdown.Naturalness, clean.Breakdown.Naturalness)
}

func TestScore_MissingFAQHurtsLongformStructure(t *testing.T) {
	article := goodArticle()
	noFAQ := article[:strings.Index(article, "## FAQ")]

	withFAQ := Score(article, testTopic(), testSlot())
	without := Score(noFAQ, testTopic(), testSlot())
	assert.Less(t, without.Breakdown.Structure, withFAQ.Breakdown.Structure)
}

func TestScore_ShortformDoesNotRequireFAQ(t *testing.T) {
	slot := &types.ContentSlot{ContentType: types.ContentTypeShortform, TargetWords: 150}
	content := `# Quick Cold Brew Coffee

Cold brew coffee needs just two things: a coarse grind and patience. Steep for 12 hours, strain, and [serve over ice](https://example.com/serve).

## The Ratio

Use 125 grams of beans per liter. Adjust steep time to taste, between 12 and 18 hours.`

	score := Score(content, testTopic(), slot)
	assert.GreaterOrEqual(t, score.Breakdown.Structure, 90.0)
}

func TestVerdictBoundaries(t *testing.T) {
	tests := []struct {
		total   int
		verdict types.QualityVerdict
	}{
		{100, types.VerdictPass},
		{80, types.VerdictPass},
		{79, types.VerdictCritique},
		{60, types.VerdictCritique},
		{59, types.VerdictWarn},
		{40, types.VerdictWarn},
		{39, types.VerdictBlock},
		{0, types.VerdictBlock},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.verdict, VerdictFor(tt.total), "total %d", tt.total)
	}
}

func TestScore_BreakdownWithinRange(t *testing.T) {
	score := Score(goodArticle(), testTopic(), testSlot())
	for name, v := range map[string]float64{
		"coverage":    score.Breakdown.Coverage,
		"readability": score.Breakdown.Readability,
		"structure":   score.Breakdown.Structure,
		"naturalness": score.Breakdown.Naturalness,
		"depth":       score.Breakdown.Depth,
	} {
		require.GreaterOrEqual(t, v, 0.0, name)
		require.LessOrEqual(t, v, 100.0, name)
	}
}
