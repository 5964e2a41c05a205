package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/chatagent/pkg/llmutils"
	"github.com/effective-security/chatagent/pkg/metricskey"
	"github.com/effective-security/chatagent/pkg/prompts"
	"github.com/effective-security/chatagent/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatagent", "agent")

// State is the lifecycle state of a chat call.
type State int

const (
	// StateAwaitingModel means the session is waiting for a model completion.
	StateAwaitingModel State = iota
	// StateExecutingTools means the session is executing model-issued tool calls.
	StateExecutingTools
	// StateDone means the chat call produced a final answer.
	StateDone
	// StateAborted means the chat call terminated without a final answer,
	// on an error or an exhausted iteration budget.
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateAwaitingModel:
		return "awaiting_model"
	case StateExecutingTools:
		return "executing_tools"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	}
	return fmt.Sprintf("state_%d", int(s))
}

// BudgetExhaustedMessage is returned to the user when the iteration budget
// runs out before the model produces a final answer.
const BudgetExhaustedMessage = "I was not able to complete the request within the allowed number of steps. Please try rephrasing or splitting the request."

// DefaultSystemPrompt is used when the session is created without one.
var DefaultSystemPrompt = prompts.NewPromptTemplate("You are a helpful assistant.", nil)

// Session is a tool-augmented chat session. It owns the conversation log,
// the tool registry and the completion client, and drives the chat loop
// until the model produces a final answer or the iteration budget runs out.
type Session struct {
	LLM llms.Model

	cfg       *Config
	name      string
	registry  *tools.Registry
	executor  *tools.Executor
	sysprompt prompts.FormatPrompter
	chatCtx   chatmodel.ChatContext

	state       State
	runMessages []llms.Message
}

var _ ISession = (*Session)(nil)

// NewSession creates a chat session around the given completion client.
// A nil sysprompt falls back to DefaultSystemPrompt.
func NewSession(llmModel llms.Model, sysprompt prompts.FormatPrompter, registry *tools.Registry, options ...Option) *Session {
	if sysprompt == nil {
		sysprompt = DefaultSystemPrompt
	}
	s := &Session{
		LLM:       llmModel,
		cfg:       NewConfig(options...),
		name:      "Chat Session",
		registry:  registry,
		executor:  tools.NewExecutor(registry),
		sysprompt: sysprompt,
		chatCtx:   chatmodel.NewChatContext(chatmodel.NewChatID()),
	}
	return s
}

// WithName sets the name of the session, used in logs and metrics.
func (s *Session) WithName(name string) *Session {
	s.name = name
	return s
}

// WithToolCallback sets the callback for tool execution events.
func (s *Session) WithToolCallback(cb tools.Callback) *Session {
	s.executor.WithCallback(cb)
	return s
}

// Name returns the name of the session.
func (s *Session) Name() string {
	return s.name
}

// State returns the lifecycle state of the last chat call.
func (s *Session) State() State {
	return s.state
}

// ChatID returns the chat ID of the session.
func (s *Session) ChatID() string {
	return s.chatCtx.GetChatID()
}

// Tools returns the registered tool definitions advertised to the model.
func (s *Session) Tools() []llms.Tool {
	return s.registry.Definitions()
}

// GetSystemPrompt formats the system prompt with the configured inputs.
func (s *Session) GetSystemPrompt(inputs map[string]any) (string, error) {
	return s.sysprompt.FormatPrompt(llmutils.MergeInputs(s.cfg.PromptInputs, inputs))
}

// Chat sends a user message and runs the conversation loop until the model
// produces an answer without tool calls, an unrecoverable error occurs, or
// the iteration budget is exhausted. On budget exhaustion the returned
// string is a user-visible message and the error is nil.
func (s *Session) Chat(ctx context.Context, input string, options ...Option) (string, error) {
	started := time.Now()
	defer metricskey.PerfChatCall.MeasureSince(started, s.name)

	if chatmodel.GetChatID(ctx) == "" {
		ctx = chatmodel.WithChatContext(ctx, s.chatCtx)
	}

	// reset the run messages
	s.runMessages = nil
	s.state = StateAwaitingModel
	cfg := s.cfg.Apply(options...)

	callback := cfg.CallbackHandler
	if callback != nil {
		callback.OnChatStart(ctx, s, input)
	}

	result, messages, err := s.run(ctx, cfg, input)
	if err != nil {
		s.state = StateAborted
		metricskey.StatsChatCallsFailed.IncrCounter(1, s.name)
		if callback != nil {
			callback.OnChatError(ctx, s, input, err, messages)
		}
		return "", err
	}
	if s.state != StateAborted {
		s.state = StateDone
	}
	metricskey.StatsChatCallsSucceeded.IncrCounter(1, s.name)
	if callback != nil {
		callback.OnChatEnd(ctx, s, input, result)
	}
	return result, nil
}

func (s *Session) run(ctx context.Context, cfg *Config, input string) (string, []llms.Message, error) {
	chatID := chatmodel.GetChatID(ctx)

	systemPrompt, err := s.GetSystemPrompt(nil)
	if err != nil {
		return "", nil, errors.WithMessage(err, "failed to format system prompt")
	}

	messageHistory := []llms.Message{
		llms.MessageFromTextParts(llms.RoleSystem, systemPrompt),
	}
	for _, example := range cfg.Examples {
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleHuman, example.Prompt))
		messageHistory = append(messageHistory, llms.MessageFromTextParts(llms.RoleAI, example.Completion))
	}
	if cfg.Store != nil {
		prevMessages, err := cfg.Store.Messages(ctx)
		if err != nil {
			return "", nil, errors.WithMessage(err, "failed to load message history")
		}
		logger.ContextKV(ctx, xlog.DEBUG,
			"session", s.name,
			"chat_id", chatID,
			"message_history", len(prevMessages))
		messageHistory = append(messageHistory, prevMessages...)
	}

	if input != "" {
		userMessage := llms.MessageFromTextParts(llms.RoleHuman, input)
		messageHistory = append(messageHistory, userMessage)
		s.runMessages = append(s.runMessages, userMessage)
	}

	var extraOptions []llms.CallOption
	if s.registry.Len() > 0 {
		prov := s.LLM.GetProviderType()
		if !prov.Supports(llms.CapabilityFunctionCalling) {
			return "", messageHistory, errors.Newf("session %s: the LLM does not support function calling", s.name)
		}
		extraOptions = append(extraOptions, llms.WithTools(s.registry.Definitions()))
	}
	callOpts := cfg.GetCallOptions(extraOptions...)

	sessionName := s.name
	modelName := s.LLM.GetName()

	var resp *llms.ContentResponse
	retryCount := 0
	consecutiveNotFoundCount := 0

	for iteration := 0; ; iteration++ {
		if iteration >= cfg.MaxIterations {
			s.state = StateAborted
			metricskey.StatsChatBudgetExhausted.IncrCounter(1, sessionName)
			logger.ContextKV(ctx, xlog.WARNING,
				"session", sessionName,
				"status", "budget_exhausted",
				"iterations", iteration,
			)
			if cfg.CallbackHandler != nil {
				cfg.CallbackHandler.OnBudgetExhausted(ctx, s, iteration)
			}
			return s.finish(ctx, cfg, chatID, input, BudgetExhaustedMessage)
		}
		if len(messageHistory) >= cfg.MaxMessages {
			return "", messageHistory, errors.Newf("session %s: the messages count exceeded limit", sessionName)
		}
		bytesSent := llmutils.CountMessagesContentSize(messageHistory)
		if bytesSent > cfg.MaxLength {
			return "", messageHistory, errors.Newf("session %s: the content size exceeded limit", sessionName)
		}

		s.state = StateAwaitingModel
		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnLLMCallStart(ctx, s, s.LLM, messageHistory)
		}

		metricskey.StatsLLMMessagesSent.IncrCounter(float64(len(messageHistory)), sessionName, modelName)
		metricskey.StatsLLMBytesSent.IncrCounter(float64(bytesSent), sessionName, modelName)

		resp, err = s.LLM.GenerateContent(ctx, messageHistory, callOpts...)
		if err != nil {
			return "", messageHistory, errors.Wrapf(err, "failed to generate content from LLM")
		}

		if cfg.CallbackHandler != nil {
			cfg.CallbackHandler.OnLLMCallEnd(ctx, s, s.LLM, resp)
		}

		bytesReceived := llmutils.CountResponseContentSize(resp)
		metricskey.StatsLLMBytesReceived.IncrCounter(float64(bytesReceived), sessionName, modelName)

		tokensIn, tokensOut, _ := llmutils.CountTokens(resp)
		metricskey.StatsLLMInputTokens.IncrCounter(float64(tokensIn), sessionName, modelName)
		metricskey.StatsLLMOutputTokens.IncrCounter(float64(tokensOut), sessionName, modelName)

		// Check for empty response and retry if needed
		if len(resp.Choices) == 0 {
			retryCount++
			if retryCount >= DefaultMaxRetries {
				return "", messageHistory, errors.Newf("session %s: LLM returned empty response after %d retries", sessionName, retryCount)
			}
			logger.ContextKV(ctx, xlog.WARNING,
				"session", sessionName,
				"status", "retrying_empty_response",
				"retry_count", retryCount,
			)
			continue
		}

		var toolExecuted int
		var notFoundCount int
		toolExecuted, notFoundCount, messageHistory = s.executeToolCalls(ctx, messageHistory, resp)
		if toolExecuted == 0 {
			break
		}
		consecutiveNotFoundCount += notFoundCount
		if notFoundCount == 0 {
			consecutiveNotFoundCount = 0
		}
		if consecutiveNotFoundCount > 3 {
			return "", messageHistory, errors.Newf("session %s: the number of not found tools is exceeded", sessionName)
		}
	}

	choices := resp.Choices
	result := choices[0].Content
	if len(choices) > 1 {
		var combined strings.Builder
		for i, choice := range choices {
			if i > 0 {
				combined.WriteString("\n\n")
			}
			combined.WriteString(choice.Content)
		}
		result = combined.String()
	}

	return s.finish(ctx, cfg, chatID, input, result)
}

// finish appends the final answer to the run messages and persists the log.
func (s *Session) finish(ctx context.Context, cfg *Config, chatID, input, result string) (string, []llms.Message, error) {
	s.runMessages = append(s.runMessages, llms.MessageFromTextParts(llms.RoleAI, result))

	if cfg.Store != nil && !cfg.SkipMessageHistory {
		for _, msg := range s.runMessages {
			if err := cfg.Store.Add(ctx, msg); err != nil {
				return "", s.runMessages, errors.WithMessage(err, "failed to persist message history")
			}
		}

		logger.ContextKV(ctx, xlog.DEBUG,
			"session", s.name,
			"chat_id", chatID,
			"status", "added_message_history",
			"message_history", len(s.runMessages),
			"human", slices.StringUpto(input, 64),
			"ai", slices.StringUpto(result, 64),
		)
	}
	return result, s.runMessages, nil
}

// executeToolCalls executes the tool calls in the response and returns the
// updated message history. Sibling tool calls run in parallel, but their
// results are appended in the request order, so the transcript is
// deterministic for a deterministic model.
func (s *Session) executeToolCalls(ctx context.Context, messageHistory []llms.Message, resp *llms.ContentResponse) (int, int, []llms.Message) {
	type toolCallResult struct {
		toolCall llms.ToolCall
		result   tools.Result
		index    int
	}

	var toolCalls []llms.ToolCall
	notFoundCount := 0

	// Collect all tool calls first and add them to message history
	for _, choice := range resp.Choices {
		var choiceToolCalls []llms.ToolCall
		for i, toolCall := range choice.ToolCalls {
			if toolCall.FunctionCall == nil {
				continue
			}
			if toolCall.ID == "" {
				toolCall.ID = fmt.Sprintf("%s_%d", toolCall.FunctionCall.Name, i)
			}
			toolCall.Type = values.StringsCoalesce(toolCall.Type, "function")
			choiceToolCalls = append(choiceToolCalls, toolCall)

			logger.ContextKV(ctx, xlog.DEBUG,
				"session", s.name,
				"status", "tool_call_found",
				"tool_call_id", toolCall.ID,
				"tool_call_name", toolCall.FunctionCall.Name,
			)
		}

		if len(choiceToolCalls) == 0 {
			continue
		}

		toolCalls = append(toolCalls, choiceToolCalls...)
		assistantResponse := llms.MessageFromToolCalls(llms.RoleAI, choiceToolCalls...)
		messageHistory = append(messageHistory, assistantResponse)
		s.runMessages = append(s.runMessages, assistantResponse)
	}

	if len(toolCalls) == 0 {
		return 0, 0, messageHistory
	}

	s.state = StateExecutingTools

	resultChan := make(chan toolCallResult, len(toolCalls))
	var wg sync.WaitGroup
	wg.Add(len(toolCalls))

	for i, toolCall := range toolCalls {
		if s.registry.Find(toolCall.FunctionCall.Name) == nil {
			notFoundCount++
		}
		go func(index int, tc llms.ToolCall) {
			defer wg.Done()
			resultChan <- toolCallResult{
				toolCall: tc,
				result:   s.executor.Execute(ctx, tc.FunctionCall.Name, tc.FunctionCall.Arguments),
				index:    index,
			}
		}(i, toolCall)
	}

	wg.Wait()
	close(resultChan)

	// Collect results in request order using the index
	results := make([]toolCallResult, len(toolCalls))
	for result := range resultChan {
		results[result.index] = result
	}

	for _, result := range results {
		toolCallResponse := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
			ToolCallID: result.toolCall.ID,
			Name:       result.toolCall.FunctionCall.Name,
			Content:    result.result.Content(),
		})

		messageHistory = append(messageHistory, toolCallResponse)
		s.runMessages = append(s.runMessages, toolCallResponse)
	}

	return len(toolCalls), notFoundCount, messageHistory
}
