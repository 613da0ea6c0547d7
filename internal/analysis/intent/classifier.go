package intent

import (
	"regexp"
	"strings"
)

// Intent 表示用户消息的意图类别。
type Intent string

const (
	Greeting       Intent = "greeting"
	ServiceInquiry Intent = "service_inquiry"
	Pricing        Intent = "pricing"
	Technical      Intent = "technical"
	Timeline       Intent = "timeline"
	Portfolio      Intent = "portfolio"
	General        Intent = "general"
)

const (
	// PatternConfidence 命中规则时的置信度。
	PatternConfidence = 0.9
	// FallbackConfidence 未命中任何规则时的置信度。
	FallbackConfidence = 0.5
)

// Match 为分类结果。
type Match struct {
	Intent     Intent
	Confidence float64
	Pattern    string
}

type rule struct {
	intent   Intent
	patterns []*regexp.Regexp
}

// rules 按优先级排列，第一个命中的意图胜出。
var rules = []rule{
	{Greeting, compile(
		`^(hi|hello|hey|howdy|greetings|hi there|hello there|good (morning|afternoon|evening))[\s!.,?]*$`,
	)},
	{ServiceInquiry, compile(
		`\bservices?\b`,
		`\b(what do you|what can you) (do|offer)\b`,
		`\bcan you (help|build|develop|design|migrate)\b`,
		`\bneed (help|assistance|a partner)\b`,
		`\blooking for (help|a partner|an agency|a consultant|consulting)\b`,
		`\b(offerings?|consulting|recommend)\b`,
	)},
	{Pricing, compile(
		`\bpric(e|es|ing)\b`,
		`\bcosts?\b`,
		`\bhow much\b`,
		`\b(budget|quote|estimate|rates?|fees?|afford|expensive|cheap)\b`,
	)},
	{Technical, compile(
		`\b(tech|technology|technologies|technical|stack|architecture|framework|frameworks)\b`,
		`\b(api|apis|kubernetes|docker|react|node|python|golang|java|database|microservices|serverless)\b`,
		`\b(infrastructure|integration|devops|ci/cd)\b`,
	)},
	{Timeline, compile(
		`\b(timeline|timeframe|time frame|deadline|schedule|roadmap)\b`,
		`\bhow (long|soon|quickly)\b`,
		`\bwhen (can|could|will) (you|we)\b`,
		`\b(weeks?|months?|launch date|go live|go-live)\b`,
	)},
	{Portfolio, compile(
		`\b(portfolio|case stud(y|ies)|success stor(y|ies)|testimonials?|references?)\b`,
		`\b(past|previous|recent) (work|projects?|clients?)\b`,
		`\b(examples?|samples?) of (your )?work\b`,
		`\bworked with\b`,
	)},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}
	return out
}

// Classify 按固定优先级匹配意图，均未命中时返回 General。
func Classify(text string) Match {
	normalized := strings.TrimSpace(text)
	if normalized == "" {
		return Match{Intent: General, Confidence: FallbackConfidence}
	}

	for _, r := range rules {
		for _, re := range r.patterns {
			if re.MatchString(normalized) {
				return Match{Intent: r.intent, Confidence: PatternConfidence, Pattern: re.String()}
			}
		}
	}
	return Match{Intent: General, Confidence: FallbackConfidence}
}

// Intents 返回按优先级排列的全部意图，General 位于末尾。
func Intents() []Intent {
	out := make([]Intent, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, r.intent)
	}
	return append(out, General)
}
