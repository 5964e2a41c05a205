// Package llmfactory provides factories and configuration for LLM model
// instantiation, supporting multiple providers (OpenAI, Azure, Anthropic)
// and a fallback model policy for chat sessions.
package llmfactory
