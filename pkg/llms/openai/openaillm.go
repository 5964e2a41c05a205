package openai

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// DefaultModel is used when the call options do not specify one.
const DefaultModel = "gpt-4o"

// LLM is an OpenAI Chat Completions client implementing the llms.Model interface.
type LLM struct {
	Client  *openai.Client
	Options Options
}

var _ llms.Model = (*LLM)(nil)

// New returns a new OpenAI LLM.
func New(opts ...Option) (*LLM, error) {
	options := Options{
		Model:   DefaultModel,
		APIType: APITypeOpenAI,
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.Token == "" {
		options.Token = os.Getenv(TokenEnvVarName)
		if options.Token == "" {
			return nil, errors.Errorf("missing the OpenAI API key, set it in the %s environment variable", TokenEnvVarName)
		}
	}

	copts := []option.RequestOption{
		option.WithAPIKey(options.Token),
		option.WithRequestTimeout(5 * time.Minute),
		option.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		copts = append(copts, option.WithBaseURL(options.BaseURL))
	}
	if options.OrgID != "" {
		copts = append(copts, option.WithOrganization(options.OrgID))
	}
	if options.HttpClient != nil {
		copts = append(copts, option.WithHTTPClient(options.HttpClient))
	}

	client := openai.NewClient(copts...)
	return &LLM{
		Client:  &client,
		Options: options,
	}, nil
}

func (o *LLM) GetName() string {
	return o.Options.Model
}

func (o *LLM) GetProviderType() llms.ProviderType {
	if o.Options.APIType == APITypeAzure {
		return llms.ProviderAzure
	}
	return llms.ProviderOpenAI
}

// GenerateContent implements the Model interface over the Chat Completions API.
func (o *LLM) GenerateContent(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	model := opts.Model
	if model == "" {
		model = o.Options.Model
	}

	chatMsgs, err := processMessages(messages)
	if err != nil {
		return nil, err
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(model),
		Messages: chatMsgs,
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if opts.TopP > 0 {
		params.TopP = openai.Float(opts.TopP)
	}
	if opts.Seed > 0 {
		params.Seed = openai.Int(int64(opts.Seed))
	}
	if len(opts.StopWords) > 0 {
		params.Stop = openai.ChatCompletionNewParamsStopUnion{
			OfStringArray: opts.StopWords,
		}
	}
	if len(opts.Tools) > 0 {
		tools, err := toTools(opts.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}

	resp, err := o.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices returned")
	}

	choices := make([]*llms.ContentChoice, 0, len(resp.Choices))
	for idx := range resp.Choices {
		c := resp.Choices[idx]
		choice := &llms.ContentChoice{
			Content:    c.Message.Content,
			StopReason: string(c.FinishReason),
			GenerationInfo: map[string]any{
				"InputTokens":  resp.Usage.PromptTokens,
				"OutputTokens": resp.Usage.CompletionTokens,
				"TotalTokens":  resp.Usage.TotalTokens,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choice.ToolCalls = append(choice.ToolCalls, llms.ToolCall{
				ID:   tc.ID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		choices = append(choices, choice)
	}

	return &llms.ContentResponse{Choices: choices}, nil
}

func toTools(tools []llms.Tool) ([]openai.ChatCompletionToolUnionParam, error) {
	res := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Function == nil {
			continue
		}
		params, err := schemaToMap(t.Function.Parameters)
		if err != nil {
			return nil, errors.WithMessagef(err, "tool %s", t.Function.Name)
		}
		res = append(res, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Function.Name,
			Description: openai.String(t.Function.Description),
			Parameters:  shared.FunctionParameters(params),
		}))
	}
	return res, nil
}

func schemaToMap(s *jsonschema.Schema) (map[string]any, error) {
	if s == nil {
		return map[string]any{"type": "object"}, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.WithStack(err)
	}
	return m, nil
}

func processMessages(messages []llms.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	res := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llms.RoleSystem:
			res = append(res, openai.SystemMessage(msg.GetContent()))
		case llms.RoleHuman:
			res = append(res, openai.UserMessage(msg.GetContent()))
		case llms.RoleAI:
			m, err := handleAIMessage(msg)
			if err != nil {
				return nil, err
			}
			res = append(res, m)
		case llms.RoleTool:
			for _, part := range msg.Parts {
				tr, ok := part.(llms.ToolCallResponse)
				if !ok {
					return nil, errors.New("expected tool call response in tool message")
				}
				res = append(res, openai.ToolMessage(tr.Content, tr.ToolCallID))
			}
		default:
			return nil, errors.Errorf("role %v not supported", msg.Role)
		}
	}
	return res, nil
}

func handleAIMessage(msg llms.Message) (openai.ChatCompletionMessageParamUnion, error) {
	assistant := openai.ChatCompletionAssistantMessageParam{}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			if p.Text != "" {
				assistant.Content.OfString = openai.String(p.Text)
			}
		case llms.ToolCall:
			if p.FunctionCall == nil {
				continue
			}
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: p.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      p.FunctionCall.Name,
						Arguments: p.FunctionCall.Arguments,
					},
				},
			})
		default:
			return openai.ChatCompletionMessageParamUnion{}, errors.Errorf("unsupported assistant message part %T", part)
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}, nil
}
