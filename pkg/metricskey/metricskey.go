package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"session", "model"},
	}

	StatsLLMBytesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_sent",
		Help:         "stats_llm_bytes_sent provides total bytes sent to LLM",
		RequiredTags: []string{"session", "model"},
	}

	StatsLLMBytesReceived = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_bytes_received",
		Help:         "stats_llm_bytes_received provides total bytes received from LLM",
		RequiredTags: []string{"session", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"session", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"session", "model"},
	}

	StatsLLMFallbacks = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_fallbacks",
		Help:         "stats_llm_fallbacks provides total fallbacks to a secondary model",
		RequiredTags: []string{"model"},
	}

	StatsLLMRetries = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_retries",
		Help:         "stats_llm_retries provides total transient retries of LLM calls",
		RequiredTags: []string{"model"},
	}

	StatsChatCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_calls_succeeded",
		Help:         "stats_chat_calls_succeeded provides total chat calls succeeded",
		RequiredTags: []string{"session"},
	}

	StatsChatCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_calls_failed",
		Help:         "stats_chat_calls_failed provides total chat calls failed",
		RequiredTags: []string{"session"},
	}

	StatsChatBudgetExhausted = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_chat_budget_exhausted",
		Help:         "stats_chat_budget_exhausted provides total chat calls terminated by the iteration budget",
		RequiredTags: []string{"session"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}
)

// Perf
var (
	PerfChatCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_chat_call",
		Help:         "perf_chat_call provides duration of one chat call",
		RequiredTags: []string{"session"},
	}

	PerfLLMCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_llm_call",
		Help:         "perf_llm_call provides duration of LLM completion call",
		RequiredTags: []string{"model"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfChatCall,
	&PerfLLMCall,
	&PerfToolCall,
	&StatsChatBudgetExhausted,
	&StatsChatCallsFailed,
	&StatsChatCallsSucceeded,
	&StatsLLMBytesReceived,
	&StatsLLMBytesSent,
	&StatsLLMFallbacks,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMRetries,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
