package callbacks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/effective-security/chatagent/agent"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/chatagent/tools"
	"github.com/effective-security/xlog"
)

// ensure that the callbacks implement the correct interfaces
var (
	_ agent.Callback = (*Noop)(nil)
	_ tools.Callback = (*Noop)(nil)
	_ agent.Callback = (*Printer)(nil)
	_ tools.Callback = (*Printer)(nil)
	_ agent.Callback = (*PackageLogger)(nil)
	_ tools.Callback = (*PackageLogger)(nil)
	_ agent.Callback = (*Fanout)(nil)
	_ tools.Callback = (*Fanout)(nil)
)

// Mode defines the mode for callback printing
type Mode int

const (
	// ModeDefault is the default mode for callback printing
	ModeDefault Mode = iota
	// ModeVerbose is the verbose mode for callback printing
	ModeVerbose
)

// Chained is a callback handler implementing both the session and the tool
// callback interfaces.
type Chained interface {
	agent.Callback
	tools.Callback
}

// Fanout is a callback handler that forwards the events to multiple callbacks.
type Fanout struct {
	callbacks []Chained
}

func NewFanout(callbacks ...Chained) *Fanout {
	return &Fanout{callbacks: callbacks}
}

func (l *Fanout) Add(callback Chained) {
	l.callbacks = append(l.callbacks, callback)
}

func (l *Fanout) OnChatStart(ctx context.Context, sess agent.ISession, input string) {
	for _, callback := range l.callbacks {
		callback.OnChatStart(ctx, sess, input)
	}
}

func (l *Fanout) OnChatEnd(ctx context.Context, sess agent.ISession, input string, output string) {
	for _, callback := range l.callbacks {
		callback.OnChatEnd(ctx, sess, input, output)
	}
}

func (l *Fanout) OnChatError(ctx context.Context, sess agent.ISession, input string, err error, messages []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnChatError(ctx, sess, input, err, messages)
	}
}

func (l *Fanout) OnBudgetExhausted(ctx context.Context, sess agent.ISession, iterations int) {
	for _, callback := range l.callbacks {
		callback.OnBudgetExhausted(ctx, sess, iterations)
	}
}

func (l *Fanout) OnLLMCallStart(ctx context.Context, sess agent.ISession, llm llms.Model, payload []llms.Message) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallStart(ctx, sess, llm, payload)
	}
}

func (l *Fanout) OnLLMCallEnd(ctx context.Context, sess agent.ISession, llm llms.Model, resp *llms.ContentResponse) {
	for _, callback := range l.callbacks {
		callback.OnLLMCallEnd(ctx, sess, llm, resp)
	}
}

func (l *Fanout) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	for _, callback := range l.callbacks {
		callback.OnToolStart(ctx, tool, input)
	}
}

func (l *Fanout) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	for _, callback := range l.callbacks {
		callback.OnToolEnd(ctx, tool, input, output)
	}
}

func (l *Fanout) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	for _, callback := range l.callbacks {
		callback.OnToolError(ctx, tool, input, err)
	}
}

func (l *Fanout) OnToolNotFound(ctx context.Context, name string) {
	for _, callback := range l.callbacks {
		callback.OnToolNotFound(ctx, name)
	}
}

// Noop does nothing.
type Noop struct{}

func NewNoop() *Noop {
	return &Noop{}
}

func (l *Noop) OnChatStart(ctx context.Context, sess agent.ISession, input string) {}
func (l *Noop) OnChatEnd(ctx context.Context, sess agent.ISession, input string, output string) {
}
func (l *Noop) OnChatError(ctx context.Context, sess agent.ISession, input string, err error, messages []llms.Message) {
}
func (l *Noop) OnBudgetExhausted(ctx context.Context, sess agent.ISession, iterations int) {}
func (l *Noop) OnLLMCallStart(ctx context.Context, sess agent.ISession, llm llms.Model, payload []llms.Message) {
}
func (l *Noop) OnLLMCallEnd(ctx context.Context, sess agent.ISession, llm llms.Model, resp *llms.ContentResponse) {
}
func (l *Noop) OnToolStart(ctx context.Context, tool tools.ITool, input string) {}
func (l *Noop) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
}
func (l *Noop) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {}
func (l *Noop) OnToolNotFound(ctx context.Context, name string)                            {}

// Printer is a callback handler that prints to the Writer.
type Printer struct {
	Out  io.Writer
	Mode Mode

	lock sync.Mutex
}

func NewPrinter(out io.Writer, mode Mode) *Printer {
	return &Printer{Out: out, Mode: mode}
}

func (l *Printer) OnChatStart(ctx context.Context, sess agent.ISession, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat Start: %s\n", sess.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnChatEnd(ctx context.Context, sess agent.ISession, input string, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat End: %s\n", sess.Name())
	if l.Mode == ModeVerbose && output != "" {
		fmt.Fprintln(l.Out, output)
	}
}

func (l *Printer) OnChatError(ctx context.Context, sess agent.ISession, input string, err error, messages []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat Error: %s: %s\n", sess.Name(), err.Error())
}

func (l *Printer) OnBudgetExhausted(ctx context.Context, sess agent.ISession, iterations int) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Chat Budget Exhausted: %s after %d iterations\n", sess.Name(), iterations)
}

func (l *Printer) OnLLMCallStart(ctx context.Context, sess agent.ISession, llm llms.Model, payload []llms.Message) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call: %s: %s model, %d messages\n", sess.Name(), llm.GetName(), len(payload))
}

func (l *Printer) OnLLMCallEnd(ctx context.Context, sess agent.ISession, llm llms.Model, resp *llms.ContentResponse) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "LLM Call End: %s: %s model, %d choices\n", sess.Name(), llm.GetName(), len(resp.Choices))
}

func (l *Printer) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Start: %s\n", tool.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *Printer) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool End: %s\n", tool.Name())
	if l.Mode == ModeVerbose {
		fmt.Fprintf(l.Out, "Output: %s\n", output)
	}
}

func (l *Printer) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool.Name(), err.Error())
}

func (l *Printer) OnToolNotFound(ctx context.Context, name string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	fmt.Fprintf(l.Out, "Tool Not Found: %s\n", name)
}

// PackageLogger is a callback handler that prints to the logger.
type PackageLogger struct {
	logger *xlog.PackageLogger
}

func NewPackageLogger(logger *xlog.PackageLogger) *PackageLogger {
	return &PackageLogger{logger: logger}
}

func (l *PackageLogger) OnChatStart(ctx context.Context, sess agent.ISession, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_start",
		"session", sess.Name(),
		"input", input,
	)
}

func (l *PackageLogger) OnChatEnd(ctx context.Context, sess agent.ISession, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "chat_end",
		"session", sess.Name(),
		"output", output,
	)
}

func (l *PackageLogger) OnChatError(ctx context.Context, sess agent.ISession, input string, err error, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "chat_error",
		"session", sess.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnBudgetExhausted(ctx context.Context, sess agent.ISession, iterations int) {
	l.logger.ContextKV(ctx, xlog.WARNING,
		"event", "chat_budget_exhausted",
		"session", sess.Name(),
		"iterations", iterations,
	)
}

func (l *PackageLogger) OnLLMCallStart(ctx context.Context, sess agent.ISession, llm llms.Model, payload []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"session", sess.Name(),
		"model", llm.GetName(),
		"messages", len(payload),
	)
}

func (l *PackageLogger) OnLLMCallEnd(ctx context.Context, sess agent.ISession, llm llms.Model, resp *llms.ContentResponse) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"session", sess.Name(),
		"model", llm.GetName(),
		"choices", len(resp.Choices),
	)
}

func (l *PackageLogger) OnToolStart(ctx context.Context, tool tools.ITool, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool.Name(),
		"input", input,
	)
}

func (l *PackageLogger) OnToolEnd(ctx context.Context, tool tools.ITool, input string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool.Name(),
		"output", output,
	)
}

func (l *PackageLogger) OnToolError(ctx context.Context, tool tools.ITool, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLogger) OnToolNotFound(ctx context.Context, name string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_not_found",
		"tool", name,
	)
}
