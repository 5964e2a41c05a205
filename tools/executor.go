package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/pkg/llmutils"
	"github.com/effective-security/chatagent/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

// Result is the outcome of one tool execution, serialized back into the
// conversation as the tool-result turn content. Exactly one of Result or
// Error is set.
type Result struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// SuccessResult returns a Result carrying the tool output. When the output
// is itself JSON, it is embedded as-is rather than double-encoded.
func SuccessResult(output string) Result {
	if gjson.Valid(output) {
		return Result{Result: json.RawMessage(output)}
	}
	return Result{Result: output}
}

// ErrorResult returns a Result carrying a human-readable error message.
func ErrorResult(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// IsError reports whether the execution failed.
func (r Result) IsError() bool {
	return r.Error != ""
}

// Content serializes the result for the conversation log.
func (r Result) Content() string {
	return llmutils.ToJSON(r)
}

// Executor resolves model-issued tool calls against a registry and invokes
// the tools. All failures, including panics inside a tool, are converted
// into error Results so that a misbehaving tool can never terminate the
// chat loop.
type Executor struct {
	registry *Registry
	callback Callback
}

// NewExecutor creates an executor over the given registry.
func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
	}
}

// WithCallback sets the tool execution callback.
func (e *Executor) WithCallback(cb Callback) *Executor {
	e.callback = cb
	return e
}

// Execute looks up the named tool, validates the model-produced arguments
// against its declared schema at a best-effort level, and invokes it.
func (e *Executor) Execute(ctx context.Context, name, arguments string) Result {
	tool := e.registry.Find(name)
	if tool == nil {
		metricskey.StatsToolCallsNotFound.IncrCounter(1, name)
		if e.callback != nil {
			e.callback.OnToolNotFound(ctx, name)
		}

		availableTools := strings.Join(e.registry.Names(), ", ")
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_not_found",
			"tool_name", name,
			"available_tools", availableTools,
		)
		return ErrorResult("Tool `%s` not found. Please check the tool name and try again with exact match. Available tools: %s", name, availableTools)
	}

	if res, ok := e.validateArguments(tool, arguments); !ok {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		if e.callback != nil {
			e.callback.OnToolError(ctx, tool, arguments, errors.New(res.Error))
		}
		return res
	}

	if e.callback != nil {
		e.callback.OnToolStart(ctx, tool, arguments)
	}

	started := time.Now()
	output, err := e.call(ctx, tool, arguments)
	metricskey.PerfToolCall.MeasureSince(started, name)

	if err != nil {
		metricskey.StatsToolCallsFailed.IncrCounter(1, name)
		if e.callback != nil {
			e.callback.OnToolError(ctx, tool, arguments, err)
		}
		logger.ContextKV(ctx, xlog.WARNING,
			"status", "tool_call_failed",
			"tool", name,
			"err", err.Error(),
		)
		return ErrorResult("Tool call failed: %s", err.Error())
	}

	metricskey.StatsToolCallsSucceeded.IncrCounter(1, name)
	if e.callback != nil {
		e.callback.OnToolEnd(ctx, tool, arguments, output)
	}
	return SuccessResult(output)
}

// validateArguments checks that the payload is a JSON object and carries
// the schema-required keys. The tool itself performs the full unmarshal;
// this is the cheap front gate that lets the model self-correct.
func (e *Executor) validateArguments(tool ITool, arguments string) (Result, bool) {
	if strings.TrimSpace(arguments) == "" {
		arguments = "{}"
	}

	if !gjson.Valid(arguments) {
		// The model occasionally wraps arguments in prose or backticks;
		// try a lenient parse before rejecting.
		var probe map[string]any
		if err := ljson.Unmarshal(llmutils.CleanJSON([]byte(arguments)), &probe); err != nil {
			return ErrorResult("Invalid arguments for tool `%s`: not a JSON object. Check the parameters schema and try again.", tool.Name()), false
		}
		bs, _ := json.Marshal(probe)
		arguments = string(bs)
	}

	params := tool.Parameters()
	if params == nil {
		return Result{}, true
	}
	var missing []string
	for _, key := range params.Required {
		if !gjson.Get(arguments, key).Exists() {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return ErrorResult("Invalid arguments for tool `%s`: missing required parameters: %s", tool.Name(), strings.Join(missing, ", ")), false
	}
	return Result{}, true
}

// call invokes the tool, converting a panic into an error.
func (e *Executor) call(ctx context.Context, tool ITool, arguments string) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("tool %s panicked: %v", tool.Name(), r)
		}
	}()
	return tool.Call(ctx, arguments)
}
