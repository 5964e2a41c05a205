package chatmodel

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

var (
	// ErrFailedUnmarshalInput is returned by tools when the model-produced
	// argument payload does not match the declared schema.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

// ContentProvider is implemented by values that can render themselves as
// chat content.
type ContentProvider interface {
	GetContent() string
}

type Stringer interface {
	String() string
}

func Stringify(s any) string {
	if v, ok := s.(Stringer); ok {
		return v.String()
	}
	if v, ok := s.(ContentProvider); ok {
		return v.GetContent()
	}
	bs, _ := json.Marshal(s)
	return string(bs)
}

// FewShotExample is one prompt/completion pair injected after the system
// prompt to steer the model.
type FewShotExample struct {
	Prompt     string
	Completion string
}

type FewShotExamples []FewShotExample
