package callbacks_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/agent"
	"github.com/effective-security/chatagent/callbacks"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/invopop/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/chatagent", "callbacks_test")

type testSession struct{}

func (s *testSession) Name() string       { return "Test Session" }
func (s *testSession) State() agent.State { return agent.StateDone }

type testModel struct{}

func (m *testModel) GetName() string                    { return "test-model" }
func (m *testModel) GetProviderType() llms.ProviderType { return llms.ProviderOpenAI }
func (m *testModel) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{}, nil
}

type testTool struct{}

func (t *testTool) Name() string                   { return "Echo" }
func (t *testTool) Description() string            { return "echoes the input" }
func (t *testTool) Parameters() *jsonschema.Schema { return nil }
func (t *testTool) Call(ctx context.Context, input string) (string, error) {
	return input, nil
}

func emitAll(cb callbacks.Chained) {
	ctx := context.Background()
	sess := &testSession{}
	model := &testModel{}
	tool := &testTool{}

	cb.OnChatStart(ctx, sess, "hello")
	cb.OnLLMCallStart(ctx, sess, model, []llms.Message{
		llms.MessageFromTextParts(llms.RoleHuman, "hello"),
	})
	cb.OnLLMCallEnd(ctx, sess, model, &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "hi"}},
	})
	cb.OnToolStart(ctx, tool, `{"text":"hi"}`)
	cb.OnToolEnd(ctx, tool, `{"text":"hi"}`, "hi")
	cb.OnToolError(ctx, tool, `{"text":"hi"}`, errors.New("boom"))
	cb.OnToolNotFound(ctx, "get_stock_price")
	cb.OnBudgetExhausted(ctx, sess, 10)
	cb.OnChatError(ctx, sess, "hello", errors.New("failed"), nil)
	cb.OnChatEnd(ctx, sess, "hello", "hi")
}

func Test_Noop(t *testing.T) {
	// all events are accepted and ignored
	emitAll(callbacks.NewNoop())
}

func Test_Printer(t *testing.T) {
	var buf bytes.Buffer
	emitAll(callbacks.NewPrinter(&buf, callbacks.ModeVerbose))

	out := buf.String()
	assert.Contains(t, out, "Chat Start: Test Session")
	assert.Contains(t, out, "Input: hello")
	assert.Contains(t, out, "LLM Call: Test Session: test-model model, 1 messages")
	assert.Contains(t, out, "Tool Start: Echo")
	assert.Contains(t, out, "Output: hi")
	assert.Contains(t, out, "Tool Error: Echo: boom")
	assert.Contains(t, out, "Tool Not Found: get_stock_price")
	assert.Contains(t, out, "Chat Budget Exhausted: Test Session after 10 iterations")
	assert.Contains(t, out, "Chat Error: Test Session: failed")
	assert.Contains(t, out, "Chat End: Test Session")
}

func Test_Printer_DefaultMode(t *testing.T) {
	var buf bytes.Buffer
	emitAll(callbacks.NewPrinter(&buf, callbacks.ModeDefault))

	out := buf.String()
	assert.Contains(t, out, "Tool End: Echo")
	assert.NotContains(t, out, "Output: hi")
}

func Test_Fanout(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	fan := callbacks.NewFanout(callbacks.NewPrinter(&buf1, callbacks.ModeDefault))
	fan.Add(callbacks.NewPrinter(&buf2, callbacks.ModeVerbose))

	emitAll(fan)

	require.NotEmpty(t, buf1.String())
	require.NotEmpty(t, buf2.String())
	assert.Contains(t, buf1.String(), "Chat Start: Test Session")
	assert.Contains(t, buf2.String(), "Chat Start: Test Session")
}

func Test_PackageLogger(t *testing.T) {
	emitAll(callbacks.NewPackageLogger(logger))
}
