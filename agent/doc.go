// Package agent provides the chat session orchestration loop for a
// tool-augmented LLM conversation. It drives the model, executes
// model-issued tool calls through a registry, and maintains the
// conversation log across turns.
package agent
