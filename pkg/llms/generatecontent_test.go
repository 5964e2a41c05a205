package llms_test

import (
	"testing"

	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MessageFromTextParts(t *testing.T) {
	msg := llms.MessageFromTextParts(llms.RoleHuman, "Hello", "World")
	assert.Equal(t, llms.RoleHuman, msg.Role)
	require.Equal(t, 2, len(msg.Parts))
	assert.Equal(t, "Hello\nWorld\n", msg.GetContent())
	assert.Empty(t, msg.ToolCalls())
}

func Test_MessageFromToolCalls(t *testing.T) {
	msg := llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "Calculator",
			Arguments: `{"expression": "1+1"}`,
		},
	})
	assert.Equal(t, llms.RoleAI, msg.Role)

	calls := msg.ToolCalls()
	require.Equal(t, 1, len(calls))
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "Calculator", calls[0].FunctionCall.Name)
	assert.Equal(t, "ToolCall: call_1 (Calculator), input: {\"expression\": \"1+1\"}", calls[0].String())

	content := msg.GetContent()
	assert.Contains(t, content, "Tool Call: ")
	assert.Contains(t, content, `"call_1"`)
}

func Test_MessageFromToolResponse(t *testing.T) {
	msg := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: "call_1",
		Name:       "Calculator",
		Content:    `{"result":"2"}`,
	})
	assert.Equal(t, llms.RoleTool, msg.Role)

	resp, ok := msg.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "ToolCallResponse: call_1 (Calculator), response size: 14", resp.String())

	content := msg.GetContent()
	assert.Contains(t, content, "Response: ")
}

func Test_ProviderCapabilities(t *testing.T) {
	assert.True(t, llms.ProviderOpenAI.Supports(llms.CapabilityFunctionCalling))
	assert.True(t, llms.ProviderAzure.Supports(llms.CapabilityFunctionCalling))
	assert.True(t, llms.ProviderAnthropic.Supports(llms.CapabilityFunctionCalling))
	assert.False(t, llms.ProviderAnthropic.Supports(llms.CapabilityJSONSchema))
	assert.False(t, llms.ProviderType("UNKNOWN").Supports(llms.CapabilityText))
}
