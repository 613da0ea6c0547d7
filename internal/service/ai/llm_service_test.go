package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/consult/backend/internal/model/chat"
)

type fakeChatModel struct {
	reply    string
	err      error
	received []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func history(contents ...string) []chat.Message {
	out := make([]chat.Message, 0, len(contents))
	for i, c := range contents {
		role := chat.RoleUser
		if i%2 == 1 {
			role = chat.RoleAssistant
		}
		out = append(out, chat.Message{ID: c, Role: role, Content: c})
	}
	return out
}

func TestCompleteBuildsPromptFromHistory(t *testing.T) {
	fake := &fakeChatModel{reply: "  We can help with that.  "}
	svc, err := NewServiceWithModel(context.Background(), fake, "test-model", 10, nil)
	require.NoError(t, err)

	profile := chat.Profile{Industry: "finance", CompanySize: chat.SizeStartup}
	got, err := svc.Complete(context.Background(), history("hello", "hi there", "what does it cost?"), profile, "pricing")
	require.NoError(t, err)
	assert.Equal(t, "We can help with that.", got)
	assert.Equal(t, "test-model", svc.Model())

	require.Len(t, fake.received, 4)
	assert.Equal(t, schema.System, fake.received[0].Role)
	assert.Contains(t, fake.received[0].Content, "行业=finance")
	assert.Contains(t, fake.received[0].Content, "当前意图：pricing")
	assert.Equal(t, "what does it cost?", fake.received[3].Content)
}

func TestCompleteTrimsHistoryToLimit(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc, err := NewServiceWithModel(context.Background(), fake, "m", 2, nil)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), history("a", "b", "c", "d", "e"), chat.Profile{}, "general")
	require.NoError(t, err)
	// system + 2 history + query
	assert.Len(t, fake.received, 4)
}

func TestCompleteErrors(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("upstream down")}
	svc, err := NewServiceWithModel(context.Background(), fake, "m", 0, nil)
	require.NoError(t, err)

	_, err = svc.Complete(context.Background(), history("hi"), chat.Profile{}, "greeting")
	assert.Error(t, err)

	_, err = svc.Complete(context.Background(), nil, chat.Profile{}, "greeting")
	assert.Error(t, err)

	fake.err = nil
	fake.reply = "   "
	_, err = svc.Complete(context.Background(), history("hi"), chat.Profile{}, "greeting")
	assert.Error(t, err)
}

func TestBuildSystemPromptWithoutProfile(t *testing.T) {
	prompt := BuildSystemPrompt(chat.Profile{}, "unknown")
	assert.Contains(t, prompt, "访客画像：暂无")
	assert.NotContains(t, prompt, "当前意图")
}
