package store

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/pkg/llms"
)

// MessageModel is the serializable form of llms.Message.
type MessageModel struct {
	Role          string              `json:"role"`
	Content       string              `json:"content,omitempty"`
	ToolCalls     []ToolCallModel     `json:"tool_calls,omitempty"`
	ToolResponses []ToolResponseModel `json:"tool_responses,omitempty"`
}

type ToolCallModel struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type ToolResponseModel struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// ToModel converts a message into its serializable form.
func ToModel(msg llms.Message) MessageModel {
	model := MessageModel{
		Role: string(msg.Role),
	}
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case llms.TextContent:
			model.Content += p.Text
		case llms.ToolCall:
			if p.FunctionCall == nil {
				continue
			}
			model.ToolCalls = append(model.ToolCalls, ToolCallModel{
				ID:        p.ID,
				Name:      p.FunctionCall.Name,
				Arguments: p.FunctionCall.Arguments,
			})
		case llms.ToolCallResponse:
			model.ToolResponses = append(model.ToolResponses, ToolResponseModel{
				ToolCallID: p.ToolCallID,
				Name:       p.Name,
				Content:    p.Content,
			})
		}
	}
	return model
}

// ToMessage converts a serialized model back into a message.
func (m MessageModel) ToMessage() llms.Message {
	msg := llms.Message{
		Role: llms.Role(m.Role),
	}
	if m.Content != "" {
		msg.Parts = append(msg.Parts, llms.TextContent{Text: m.Content})
	}
	for _, tc := range m.ToolCalls {
		msg.Parts = append(msg.Parts, llms.ToolCall{
			ID:   tc.ID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	for _, tr := range m.ToolResponses {
		msg.Parts = append(msg.Parts, llms.ToolCallResponse{
			ToolCallID: tr.ToolCallID,
			Name:       tr.Name,
			Content:    tr.Content,
		})
	}
	return msg
}

// ToMessages converts serialized models back into messages.
func ToMessages(models []MessageModel) []llms.Message {
	if len(models) == 0 {
		return nil
	}
	res := make([]llms.Message, 0, len(models))
	for _, m := range models {
		res = append(res, m.ToMessage())
	}
	return res
}

func encodeMessage(msg llms.Message) ([]byte, error) {
	data, err := json.Marshal(ToModel(msg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return data, nil
}

func decodeMessage(data []byte) (llms.Message, error) {
	var model MessageModel
	if err := json.Unmarshal(data, &model); err != nil {
		return llms.Message{}, errors.Wrap(err, "failed to unmarshal message")
	}
	return model.ToMessage(), nil
}
