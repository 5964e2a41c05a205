package agent

import (
	"context"

	"github.com/effective-security/chatagent/pkg/llms"
)

// ISession is the read-only view of a session exposed to callbacks.
type ISession interface {
	// Name returns the name of the session.
	Name() string
	// State returns the current lifecycle state.
	State() State
}

// Callback receives session events.
type Callback interface {
	OnChatStart(ctx context.Context, sess ISession, input string)
	OnChatEnd(ctx context.Context, sess ISession, input string, output string)
	OnChatError(ctx context.Context, sess ISession, input string, err error, messages []llms.Message)
	OnBudgetExhausted(ctx context.Context, sess ISession, iterations int)
	OnLLMCallStart(ctx context.Context, sess ISession, llm llms.Model, payload []llms.Message)
	OnLLMCallEnd(ctx context.Context, sess ISession, llm llms.Model, resp *llms.ContentResponse)
}
