// Package prompt builds summary generation instructions. Concise requests use
// one fixed template; extended requests pick a template whose target length
// scales with the word count of the source article.
package prompt

import (
	"fmt"
	"strings"

	"github.com/starford/quest/internal/models"
)

// Tier identifies the template chosen for a request.
type Tier int

const (
	TierConcise Tier = iota
	TierShort
	TierModerate
	TierBalanced
	TierFull
)

func (t Tier) String() string {
	switch t {
	case TierConcise:
		return "concise"
	case TierShort:
		return "short"
	case TierModerate:
		return "moderate"
	case TierBalanced:
		return "balanced"
	case TierFull:
		return "full"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Word-count thresholds between extended tiers.
const (
	shortLimit    = 500
	moderateLimit = 1000
	balancedLimit = 2500
)

const contentMarker = "[CONTENT]"

const conciseTemplate = `Analyze this article and provide a comprehensive yet concise summary that captures:
1. Main arguments and key points
2. Supporting evidence and data
3. Conclusions and implications
4. Any actionable insights

Keep the summary informative but accessible, around 200-300 words.

Article: [CONTENT]`

const shortTemplate = `Create a natural, conversational summary of this article:

This is a short article (%d words), so keep your summary proportional - aim for 300-400 words.

Requirements:
- Conversational, podcast-ready tone
- Clear and engaging explanations
- Natural speech patterns with appropriate pauses
- Brief intro and conclusion
- Focus on the key message without over-explaining

Make it sound like you're explaining this to a friend.

Article: [CONTENT]`

const moderateTemplate = `Create a podcast-ready summary of this article with natural speech patterns:

This is a moderate-length article (%d words). Create a summary of 400-600 words.

Requirements:
- Conversational tone with natural pauses
- Explain key concepts clearly
- Use transitional phrases like "Now, here's what's interesting..."
- Include relevant context and examples
- Natural speech rhythm
- Clear intro, body, and conclusion

Make it engaging and easy to follow.

Article: [CONTENT]`

const balancedTemplate = `Create an extended, podcast-ready summary of this article:

This article is %d words. Create a comprehensive summary of 600-900 words.

Requirements:
- Conversational, podcast-ready tone with natural pauses
- Thorough explanations of complex concepts
- Transitional phrases and rhetorical questions
- Include important details, data, and examples
- Storytelling elements where appropriate
- Natural speech rhythm and emphasis cues
- Well-structured intro, body, and conclusion
- Personal observations to maintain engagement

Make it sound like a knowledgeable friend explaining the article thoroughly.

Article: [CONTENT]`

const fullTemplate = `Create a comprehensive, podcast-ready summary of this in-depth article:

This is a substantial article (%d words). Create a thorough summary of 900-1200 words.

Requirements:
- Rich, conversational tone perfect for TTS conversion
- Deep explanations of complex concepts and terminology
- Transitional phrases like "Now, here's where it gets interesting..."
- Rhetorical questions to engage listeners
- Include key data, statistics, and examples
- Storytelling elements and real-world applications
- Natural speech rhythm with emphasis cues
- Comprehensive intro establishing context
- Detailed body covering all major points
- Strong conclusion tying everything together
- Personal observations like "This reminds me of..." or "What's fascinating here is..."

Make it sound like an expert friend explaining a complex topic over coffee, taking time to ensure understanding.

Article: [CONTENT]`

// WordCount counts whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// SelectTier returns the template tier for kind and content.
// Unknown kinds fall back to the concise template.
func SelectTier(kind models.SummaryKind, content string) Tier {
	if kind != models.SummaryExtended {
		return TierConcise
	}
	switch n := WordCount(content); {
	case n < shortLimit:
		return TierShort
	case n < moderateLimit:
		return TierModerate
	case n < balancedLimit:
		return TierBalanced
	default:
		return TierFull
	}
}

// Build returns the full instruction for summarizing content.
func Build(kind models.SummaryKind, content string) string {
	var tmpl string
	switch SelectTier(kind, content) {
	case TierShort:
		tmpl = shortTemplate
	case TierModerate:
		tmpl = moderateTemplate
	case TierBalanced:
		tmpl = balancedTemplate
	case TierFull:
		tmpl = fullTemplate
	default:
		return strings.Replace(conciseTemplate, contentMarker, content, 1)
	}
	return strings.Replace(fmt.Sprintf(tmpl, WordCount(content)), contentMarker, content, 1)
}
