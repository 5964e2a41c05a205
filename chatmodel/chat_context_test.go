package chatmodel_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ChatContext(t *testing.T) {
	chatCtx := chatmodel.NewChatContext("chat123")
	assert.Equal(t, "chat123", chatCtx.GetChatID())

	_, ok := chatCtx.GetMetadata("user")
	assert.False(t, ok)
	chatCtx.SetMetadata("user", "denis")
	v, ok := chatCtx.GetMetadata("user")
	require.True(t, ok)
	assert.Equal(t, "denis", v)
}

func Test_ChatContext_GeneratedID(t *testing.T) {
	c1 := chatmodel.NewChatContext("")
	c2 := chatmodel.NewChatContext("")
	assert.NotEmpty(t, c1.GetChatID())
	assert.NotEqual(t, c1.GetChatID(), c2.GetChatID())
}

func Test_ChatContext_FromContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, chatmodel.GetChatContext(ctx))
	assert.Equal(t, "", chatmodel.GetChatID(ctx))

	_, err := chatmodel.RequireChatID(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chatmodel.ErrInvalidChatContext))

	chatCtx := chatmodel.NewChatContext("chat123")
	ctx = chatmodel.WithChatContext(ctx, chatCtx)
	assert.Same(t, chatCtx, chatmodel.GetChatContext(ctx))

	id, err := chatmodel.RequireChatID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "chat123", id)
}

type stringer string

func (s stringer) String() string { return string(s) }

func Test_Stringify(t *testing.T) {
	type payload struct {
		A int `json:"a"`
	}
	assert.Equal(t, `{"a":1}`, chatmodel.Stringify(payload{A: 1}))
	assert.Equal(t, "chat123", chatmodel.Stringify(stringer("chat123")))
}
