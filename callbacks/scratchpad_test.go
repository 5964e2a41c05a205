package callbacks_test

import (
	"context"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/callbacks"
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Scratchpad(t *testing.T) {
	callbacks.TimeNowFn = func() time.Time {
		return time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	}
	defer func() { callbacks.TimeNowFn = time.Now }()

	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat123"))

	sp := callbacks.NewScratchpad(callbacks.ModeVerbose)
	sp.StartRun(ctx)

	sess := &testSession{}
	model := &testModel{}
	tool := &testTool{}

	sp.OnChatStart(ctx, sess, "What is 2+2?")
	sp.OnLLMCallStart(ctx, sess, model, []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, "You are a helpful assistant."),
		llms.MessageFromTextParts(llms.RoleHuman, "What is 2+2?"),
	})
	sp.OnLLMCallEnd(ctx, sess, model, &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content: "4",
				GenerationInfo: map[string]any{
					"InputTokens":  int64(20),
					"OutputTokens": int64(1),
				},
			},
		},
	})
	sp.OnToolStart(ctx, tool, `{"text":"hi"}`)
	sp.OnToolEnd(ctx, tool, `{"text":"hi"}`, "hi")
	sp.OnToolNotFound(ctx, "get_stock_price")
	sp.OnToolError(ctx, tool, `{"text":"hi"}`, errors.New("boom"))
	sp.OnBudgetExhausted(ctx, sess, 10)
	sp.OnChatEnd(ctx, sess, "What is 2+2?", "4")

	stats, transcript := sp.EndRun(ctx)
	require.NotNil(t, stats)

	assert.Equal(t, "chat123", stats.ChatID)
	assert.NotEmpty(t, stats.RunID)
	assert.Equal(t, uint32(1), stats.ChatCalls)
	assert.Equal(t, uint32(1), stats.ChatCallsSucceeded)
	assert.Equal(t, uint32(0), stats.ChatCallsFailed)
	assert.Equal(t, uint32(1), stats.BudgetExhausted)
	assert.Equal(t, uint32(1), stats.LLMCalls)
	assert.Equal(t, uint32(2), stats.TotalMessages)
	assert.Equal(t, uint64(20), stats.LLMInputTokens)
	assert.Equal(t, uint64(1), stats.LLMOutputTokens)
	assert.Equal(t, uint32(1), stats.ToolsCalls)
	assert.Equal(t, uint32(1), stats.ToolsCallsSucceeded)
	assert.Equal(t, uint32(1), stats.ToolsCallsFailed)
	assert.Equal(t, uint32(1), stats.ToolNotFound)

	out := string(transcript)
	assert.Contains(t, out, "2025-01-15 10:30:00 chat123."+stats.RunID)
	assert.Contains(t, out, "*** Run Started ***")
	assert.Contains(t, out, "Test Session *** Chat Start ***")
	assert.Contains(t, out, "Input: What is 2+2?")
	assert.Contains(t, out, "*** LLM Call *** test-model model, 2 messages")
	assert.Contains(t, out, "*** Tool Not Found *** get_stock_price")
	assert.Contains(t, out, "Echo *** Tool Error *** boom")
	assert.Contains(t, out, "*** Budget Exhausted *** 10 iterations")
	assert.Contains(t, out, "*** Run Ended")

	// the run is removed on EndRun
	stats, transcript = sp.EndRun(ctx)
	assert.Nil(t, stats)
	assert.Nil(t, transcript)
}

func Test_Scratchpad_NoChatContext(t *testing.T) {
	sp := callbacks.NewScratchpad(callbacks.ModeDefault)

	// events without a chat context are ignored
	ctx := context.Background()
	sp.OnChatStart(ctx, &testSession{}, "hello")
	stats, transcript := sp.EndRun(ctx)
	assert.Nil(t, stats)
	assert.Nil(t, transcript)
}
