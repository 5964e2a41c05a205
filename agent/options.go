package agent

import (
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/pkg/llms"
	"github.com/effective-security/chatagent/store"
)

const (
	// DefaultMaxIterations is the default budget of model calls per chat call.
	DefaultMaxIterations = 10
	// DefaultMaxMessages is the default limit on the message history length.
	DefaultMaxMessages = 100
	// DefaultMaxContentSize is the default limit on the total content size sent to the LLM.
	DefaultMaxContentSize = uint64(256 * 1024)
	// DefaultMaxRetries is the number of attempts when the LLM returns an empty response.
	DefaultMaxRetries = 3
)

// Option is a function that can be used to modify the behavior of the Session Config.
type Option func(*Config)

type Config struct {
	// Model is the model to use in an LLM call.
	Model    string
	modelSet bool

	// MaxTokens is the maximum number of tokens to generate to use in an LLM call.
	MaxTokens    int
	maxTokensSet bool

	// Temperature is the temperature for sampling to use in an LLM call, between 0 and 1.
	Temperature    float64
	temperatureSet bool

	// StopWords is a list of words to stop on to use in an LLM call.
	StopWords    []string
	stopWordsSet bool

	// TopP is the cumulative probability for top-p sampling in an LLM call.
	TopP    float64
	toppSet bool

	// Seed is a seed for deterministic sampling in an LLM call.
	Seed    int
	seedSet bool

	// CallbackHandler receives session events.
	CallbackHandler Callback

	//
	// Below are the options for the session, not related to LLM call
	//

	// MaxIterations is the budget of model calls per chat call.
	// When exhausted, the session returns a budget message instead of an answer.
	MaxIterations int

	// MaxMessages limits the message history length per chat call.
	MaxMessages int

	// MaxLength limits the total content size sent to the LLM, in bytes.
	MaxLength uint64

	// Store persists the conversation log across chat calls.
	Store store.MessageStore

	// PromptInputs are merged into the system prompt template inputs.
	PromptInputs map[string]any

	// Examples are few-shot examples injected after the system prompt.
	Examples chatmodel.FewShotExamples

	// SkipMessageHistory skips persisting messages to the Store.
	SkipMessageHistory bool
}

func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		MaxIterations: DefaultMaxIterations,
		MaxMessages:   DefaultMaxMessages,
		MaxLength:     DefaultMaxContentSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Apply returns a copy of the config with the options applied.
func (c *Config) Apply(opts ...Option) *Config {
	cfg := *c
	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxIterations sets the budget of model calls per chat call.
func WithMaxIterations(n int) Option {
	return func(o *Config) {
		if n > 0 {
			o.MaxIterations = n
		}
	}
}

// WithMaxMessages limits the message history length per chat call.
func WithMaxMessages(n int) Option {
	return func(o *Config) {
		if n > 0 {
			o.MaxMessages = n
		}
	}
}

// WithMaxLength limits the total content size sent to the LLM, in bytes.
func WithMaxLength(n uint64) Option {
	return func(o *Config) {
		if n > 0 {
			o.MaxLength = n
		}
	}
}

// WithStore sets the message store for the conversation log.
func WithStore(s store.MessageStore) Option {
	return func(o *Config) {
		o.Store = s
	}
}

// WithExamples is an option that allows to specify the few-shot examples for the system prompt.
func WithExamples(examples chatmodel.FewShotExamples) Option {
	return func(o *Config) {
		o.Examples = examples
	}
}

// WithPromptInputs is an option that allows the user to specify the system prompt inputs.
func WithPromptInputs(inputs map[string]any) Option {
	return func(o *Config) {
		o.PromptInputs = inputs
	}
}

// WithSkipMessageHistory is an option that allows to skip adding messages to the Store.
func WithSkipMessageHistory(skip bool) Option {
	return func(o *Config) {
		o.SkipMessageHistory = skip
	}
}

// WithCallback allows setting a custom Callback Handler.
func WithCallback(callbackHandler Callback) Option {
	return func(o *Config) {
		o.CallbackHandler = callbackHandler
	}
}

// WithModel is an option for LLM.Call.
func WithModel(model string) Option {
	return func(o *Config) {
		o.Model = model
		o.modelSet = true
	}
}

// WithMaxTokens is an option for LLM.Call.
func WithMaxTokens(maxTokens int) Option {
	return func(o *Config) {
		o.MaxTokens = maxTokens
		o.maxTokensSet = true
	}
}

// WithTemperature is an option for LLM.Call.
func WithTemperature(temperature float64) Option {
	return func(o *Config) {
		o.Temperature = temperature
		o.temperatureSet = true
	}
}

// WithStopWords is an option for setting the stop words for LLM.Call.
func WithStopWords(stopWords []string) Option {
	return func(o *Config) {
		o.StopWords = stopWords
		o.stopWordsSet = true
	}
}

// WithTopP will add an option to use top-p sampling for LLM.Call.
func WithTopP(topP float64) Option {
	return func(o *Config) {
		o.TopP = topP
		o.toppSet = true
	}
}

// WithSeed will add an option to use deterministic sampling for LLM.Call.
func WithSeed(seed int) Option {
	return func(o *Config) {
		o.Seed = seed
		o.seedSet = true
	}
}

// GetCallOptions converts the config into LLM call options.
func (c *Config) GetCallOptions(extra ...llms.CallOption) []llms.CallOption {
	var callOpts []llms.CallOption
	if c.modelSet {
		callOpts = append(callOpts, llms.WithModel(c.Model))
	}
	if c.maxTokensSet {
		callOpts = append(callOpts, llms.WithMaxTokens(c.MaxTokens))
	}
	if c.temperatureSet {
		callOpts = append(callOpts, llms.WithTemperature(c.Temperature))
	}
	if c.stopWordsSet {
		callOpts = append(callOpts, llms.WithStopWords(c.StopWords))
	}
	if c.toppSet {
		callOpts = append(callOpts, llms.WithTopP(c.TopP))
	}
	if c.seedSet {
		callOpts = append(callOpts, llms.WithSeed(c.Seed))
	}
	callOpts = append(callOpts, extra...)
	return callOpts
}
