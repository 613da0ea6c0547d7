package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consult/backend/internal/model/chat"
)

func TestClassifyCorpus(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"Hello!", Greeting},
		{"good morning", Greeting},
		{"What services do you offer?", ServiceInquiry},
		{"I need help reducing my AWS bill", ServiceInquiry},
		{"What's your pricing for a startup?", Pricing},
		{"How much would a mobile app cost?", Pricing},
		{"Which tech stack do you use?", Technical},
		{"Do you work with Kubernetes?", Technical},
		{"How long does a typical project take?", Timeline},
		{"Can you show me some case studies?", Portfolio},
		{"Which clients have you worked with?", Portfolio},
		{"The weather is nice today", General},
		{"", General},
	}

	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got := Classify(tc.text)
			assert.Equal(t, tc.want, got.Intent)
		})
	}
}

func TestClassifyConfidence(t *testing.T) {
	assert.Equal(t, PatternConfidence, Classify("hi").Confidence)
	assert.Equal(t, FallbackConfidence, Classify("tell me a joke").Confidence)
	assert.NotEmpty(t, Classify("pricing please").Pattern)
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Mentions both services and pricing: service inquiry wins.
	assert.Equal(t, ServiceInquiry, Classify("What services do you have and what do they cost?").Intent)
	// Greeting only when the message is nothing but a greeting.
	assert.Equal(t, Pricing, Classify("hi, what are your prices?").Intent)

	intents := Intents()
	require.Len(t, intents, 7)
	assert.Equal(t, Greeting, intents[0])
	assert.Equal(t, General, intents[len(intents)-1])
}

func TestInferProfileLongestMatchFirst(t *testing.T) {
	p := InferProfile([]string{"We are a large enterprise in healthcare", "our AWS bill keeps growing"})

	assert.Equal(t, "healthcare", p.Industry)
	assert.Equal(t, chat.SizeEnterprise, p.CompanySize)
	assert.Equal(t, []string{"cost reduction"}, p.Challenges)
	assert.Equal(t, []string{"aws"}, p.TechStack)
}

func TestInferProfileWordBoundaries(t *testing.T) {
	p := InferProfile([]string{"please email me the details"})
	assert.Empty(t, p.Interests, "ai must not match inside email")

	p = InferProfile([]string{"we want to add AI to our product"})
	assert.Equal(t, []string{"ai"}, p.Interests)
}

func TestInferProfileEmpty(t *testing.T) {
	p := InferProfile(nil)
	assert.Equal(t, chat.Profile{}, p)
}

func TestInferredProfileMergesWithoutClearing(t *testing.T) {
	base := chat.DefaultProfile().Merge(InferProfile([]string{"I run a fintech startup"}))
	require.Equal(t, "finance", base.Industry)
	require.Equal(t, chat.SizeStartup, base.CompanySize)

	next := base.Merge(InferProfile([]string{"we use kubernetes"}))
	assert.Equal(t, "finance", next.Industry)
	assert.Equal(t, chat.SizeStartup, next.CompanySize)
	assert.Equal(t, []string{"kubernetes"}, next.TechStack)
}
