package store

import (
	"context"
	"time"

	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatagent", "store")

// MessageStore persists the conversation log of a chat. The chat ID is taken
// from the chat context on ctx. The log is append only and unbounded, every
// turn since session start is retained.
type MessageStore interface {
	Messages(ctx context.Context) ([]llms.Message, error)
	Add(ctx context.Context, msg llms.Message) error
	Reset(ctx context.Context) error
}

// ChatInfo describes a persisted chat.
type ChatInfo struct {
	ChatID    string         `json:"chat_id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Messages  []MessageModel `json:"messages,omitempty"`
}

// MessageStoreManager extends MessageStore with chat management operations.
type MessageStoreManager interface {
	MessageStore

	UpdateChat(ctx context.Context, title string, metadata map[string]any) error
	GetChatInfo(ctx context.Context, chatID string) (*ChatInfo, error)
	ListChats(ctx context.Context) ([]string, error)
	Cleanup(ctx context.Context, olderThan time.Duration) (uint32, error)
}
