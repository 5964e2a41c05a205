package store_test

import (
	"context"
	"testing"

	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/chatagent/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_MemoryStore(t *testing.T) {
	st := store.NewMemoryStore()

	chatID := "chat1"
	msg1 := llms.MessageFromTextParts(llms.RoleHuman, "Hello")
	msg2 := llms.MessageFromTextParts(llms.RoleAI, "Hi there!")

	ctx := context.Background()
	expErr := "invalid chat context"
	assert.EqualError(t, st.Reset(ctx), expErr)
	assert.EqualError(t, st.Add(ctx, msg1), expErr)
	_, err := st.Messages(ctx)
	assert.EqualError(t, err, expErr)

	chatCtx := chatmodel.NewChatContext(chatID)
	ctx = chatmodel.WithChatContext(ctx, chatCtx)

	cID, err := chatmodel.RequireChatID(ctx)
	require.NoError(t, err)
	assert.Equal(t, chatID, cID)

	require.NoError(t, st.Add(ctx, msg1))
	require.NoError(t, st.Add(ctx, msg2))

	messages, err := st.Messages(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, len(messages))
	assert.Equal(t, "Hello\n", messages[0].GetContent())
	assert.Equal(t, "Hi there!\n", messages[1].GetContent())

	// Another chat does not see these messages
	otherCtx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat2"))
	other, err := st.Messages(otherCtx)
	require.NoError(t, err)
	assert.Empty(t, other)

	// Reset the chat
	require.NoError(t, st.Reset(ctx))

	messages, err = st.Messages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, len(messages))
}

func Test_MessageModelRoundtrip(t *testing.T) {
	msg := llms.MessageFromToolCalls(llms.RoleAI, llms.ToolCall{
		ID:   "call_1",
		Type: "function",
		FunctionCall: &llms.FunctionCall{
			Name:      "Calculator",
			Arguments: `{"Expression":"1+2"}`,
		},
	})

	model := store.ToModel(msg)
	require.Equal(t, 1, len(model.ToolCalls))
	assert.Equal(t, "call_1", model.ToolCalls[0].ID)

	back := model.ToMessage()
	assert.Equal(t, llms.RoleAI, back.Role)
	calls := back.ToolCalls()
	require.Equal(t, 1, len(calls))
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "Calculator", calls[0].FunctionCall.Name)
	assert.Equal(t, `{"Expression":"1+2"}`, calls[0].FunctionCall.Arguments)

	resp := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: "call_1",
		Name:       "Calculator",
		Content:    `{"result":"3"}`,
	})
	back2 := store.ToModel(resp).ToMessage()
	require.Equal(t, 1, len(back2.Parts))
	tr, ok := back2.Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", tr.ToolCallID)
	assert.Equal(t, `{"result":"3"}`, tr.Content)
}
