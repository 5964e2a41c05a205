package agent_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/agent"
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/mocks/mockllms"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/chatagent/pkg/prompts"
	"github.com/effective-security/chatagent/store"
	"github.com/effective-security/chatagent/tools"
	"github.com/effective-security/chatagent/tools/calculator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var systemPrompt = prompts.NewPromptTemplate("You are a helpful assistant.", nil)

func newMockModel(ctrl *gomock.Controller) *mockllms.MockModel {
	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("mock-model").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return mockLLM
}

func newCalcRegistry(t *testing.T) *tools.Registry {
	t.Helper()
	calc, err := calculator.New()
	require.NoError(t, err)
	reg, err := tools.NewRegistry(calc)
	require.NoError(t, err)
	return reg
}

func toolCallResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				StopReason: "tool_calls",
				ToolCalls:  calls,
			},
		},
	}
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				Content:    content,
				StopReason: "stop",
			},
		},
	}
}

func Test_Session_ToolRoundTrip(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)

	call1 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "Calculator",
				Arguments: `{"expression": "120.09*623.09"}`,
			},
		}), nil)

	var secondPayload []llms.Message
	call2 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			secondPayload = messages
			return textResponse("The result is 74826.8781."), nil
		})
	gomock.InOrder(call1, call2)

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t))

	answer, err := sess.Chat(context.Background(), "What is 120.09 multiplied by 623.09?")
	require.NoError(t, err)
	assert.Equal(t, "The result is 74826.8781.", answer)
	assert.Equal(t, agent.StateDone, sess.State())

	// the second request carries the tool call turn and its correlated result
	require.Equal(t, 4, len(secondPayload))
	assert.Equal(t, llms.RoleSystem, secondPayload[0].Role)
	assert.Equal(t, llms.RoleHuman, secondPayload[1].Role)

	assert.Equal(t, llms.RoleAI, secondPayload[2].Role)
	calls := secondPayload[2].ToolCalls()
	require.Equal(t, 1, len(calls))
	assert.Equal(t, "call_1", calls[0].ID)

	assert.Equal(t, llms.RoleTool, secondPayload[3].Role)
	resp, ok := secondPayload[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, "Calculator", resp.Name)
	assert.Contains(t, resp.Content, "74826.8781")
}

func Test_Session_SiblingToolOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)

	// two sibling calls without IDs; results must come back in request order
	call1 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(
			llms.ToolCall{FunctionCall: &llms.FunctionCall{Name: "Calculator", Arguments: `{"expression": "1+2"}`}},
			llms.ToolCall{FunctionCall: &llms.FunctionCall{Name: "Calculator", Arguments: `{"expression": "10/4"}`}},
		), nil)

	var secondPayload []llms.Message
	call2 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			secondPayload = messages
			return textResponse("3 and 2.5"), nil
		})
	gomock.InOrder(call1, call2)

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t))

	answer, err := sess.Chat(context.Background(), "Compute 1+2 and 10/4")
	require.NoError(t, err)
	assert.Equal(t, "3 and 2.5", answer)

	// system, human, assistant tool calls, two tool results
	require.Equal(t, 5, len(secondPayload))
	calls := secondPayload[2].ToolCalls()
	require.Equal(t, 2, len(calls))
	assert.Equal(t, "Calculator_0", calls[0].ID)
	assert.Equal(t, "Calculator_1", calls[1].ID)

	resp0, ok := secondPayload[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	resp1, ok := secondPayload[4].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "Calculator_0", resp0.ToolCallID)
	assert.Contains(t, resp0.Content, "3")
	assert.Equal(t, "Calculator_1", resp1.ToolCallID)
	assert.Contains(t, resp1.Content, "2.5")
}

func Test_Session_UnknownTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)

	call1 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:   "call_7",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "get_stock_price",
				Arguments: `{"ticker": "MSFT"}`,
			},
		}), nil)

	var secondPayload []llms.Message
	call2 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			secondPayload = messages
			return textResponse("I cannot look up stock prices."), nil
		})
	gomock.InOrder(call1, call2)

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t))

	// an unknown tool is reported to the model, not raised to the caller
	answer, err := sess.Chat(context.Background(), "What is the stock price of MSFT?")
	require.NoError(t, err)
	assert.Equal(t, "I cannot look up stock prices.", answer)

	require.Equal(t, 4, len(secondPayload))
	resp, ok := secondPayload[3].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_7", resp.ToolCallID)
	assert.Contains(t, resp.Content, "Tool `get_stock_price` not found")
	assert.Contains(t, resp.Content, "Available tools: Calculator")
}

func Test_Session_BudgetExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)

	// the model never stops asking for tools
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "Calculator",
				Arguments: `{"expression": "1+1"}`,
			},
		}), nil).
		Times(agent.DefaultMaxIterations)

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t))

	answer, err := sess.Chat(context.Background(), "Keep computing")
	require.NoError(t, err)
	assert.Equal(t, agent.BudgetExhaustedMessage, answer)
	assert.Equal(t, agent.StateAborted, sess.State())
}

func Test_Session_ConfiguredBudget(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolCallResponse(llms.ToolCall{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "Calculator",
				Arguments: `{"expression": "1+1"}`,
			},
		}), nil).
		Times(3)

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t),
		agent.WithMaxIterations(3))

	answer, err := sess.Chat(context.Background(), "Keep computing")
	require.NoError(t, err)
	assert.Equal(t, agent.BudgetExhaustedMessage, answer)
	assert.Equal(t, agent.StateAborted, sess.State())
}

func Test_Session_DefaultSystemPrompt(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)

	var payload []llms.Message
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			payload = messages
			return textResponse("hi"), nil
		})

	sess := agent.NewSession(mockLLM, nil, newCalcRegistry(t))

	answer, err := sess.Chat(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "hi", answer)

	require.NotEmpty(t, payload)
	assert.Equal(t, llms.RoleSystem, payload[0].Role)
	assert.Equal(t, "You are a helpful assistant.\n", payload[0].GetContent())
}

func Test_Session_CompletionError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("completion unavailable"))

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t))

	_, err := sess.Chat(context.Background(), "Hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completion unavailable")
	assert.Equal(t, agent.StateAborted, sess.State())
}

func Test_Session_Idempotent(t *testing.T) {
	runOnce := func(t *testing.T) (string, []llms.Message) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		mockLLM := newMockModel(ctrl)
		call1 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolCallResponse(llms.ToolCall{
				ID:   "call_1",
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      "Calculator",
					Arguments: `{"expression": "2+2*2"}`,
				},
			}), nil)

		var payload []llms.Message
		call2 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
				payload = messages
				return textResponse("6"), nil
			})
		gomock.InOrder(call1, call2)

		sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t))
		answer, err := sess.Chat(context.Background(), "What is 2+2*2?")
		require.NoError(t, err)
		return answer, payload
	}

	answer1, payload1 := runOnce(t)
	answer2, payload2 := runOnce(t)

	// two fresh sessions over the same deterministic model produce the same transcript
	assert.Equal(t, answer1, answer2)
	assert.Equal(t, payload1, payload2)
}

func Test_Session_History(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)

	var firstPayload, secondPayload []llms.Message
	call1 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			firstPayload = messages
			return textResponse("Hi, I am here to help."), nil
		})
	call2 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			secondPayload = messages
			return textResponse("You said hello."), nil
		})
	gomock.InOrder(call1, call2)

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t),
		agent.WithStore(store.NewMemoryStore()))

	ctx := context.Background()
	_, err := sess.Chat(ctx, "Hello")
	require.NoError(t, err)
	_, err = sess.Chat(ctx, "What did I say?")
	require.NoError(t, err)

	// system + user question
	assert.Equal(t, 2, len(firstPayload))
	// system + persisted turns of the first call + new user question
	require.Equal(t, 4, len(secondPayload))
	assert.Equal(t, "Hello\n", secondPayload[1].GetContent())
	assert.Equal(t, "Hi, I am here to help.\n", secondPayload[2].GetContent())
	assert.Equal(t, "What did I say?\n", secondPayload[3].GetContent())
}

func Test_Session_EmptyResponseRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)
	empty := &llms.ContentResponse{}
	call1 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(empty, nil)
	call2 := mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).Return(textResponse("ok"), nil)
	gomock.InOrder(call1, call2)

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t))

	answer, err := sess.Chat(context.Background(), "Hello")
	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func Test_Session_Examples(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockModel(ctrl)

	var payload []llms.Message
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			payload = messages
			return textResponse("4"), nil
		})

	sess := agent.NewSession(mockLLM, systemPrompt, newCalcRegistry(t),
		agent.WithExamples(chatmodel.FewShotExamples{
			{Prompt: "What is 1+1?", Completion: "2"},
		}))

	_, err := sess.Chat(context.Background(), "What is 2+2?")
	require.NoError(t, err)

	require.Equal(t, 4, len(payload))
	assert.Equal(t, llms.RoleHuman, payload[1].Role)
	assert.Equal(t, "What is 1+1?\n", payload[1].GetContent())
	assert.Equal(t, llms.RoleAI, payload[2].Role)
	assert.Equal(t, "2\n", payload[2].GetContent())
}
