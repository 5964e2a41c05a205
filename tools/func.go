package tools

import (
	"context"
	"reflect"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/pkg/llmutils"
	"github.com/effective-security/chatagent/schema"
	"github.com/invopop/jsonschema"
)

// FuncTool adapts a typed Go function into an ITool. The parameter schema is
// reflected from the input struct type; the model-produced argument payload
// is parsed leniently before invocation.
type FuncTool[I any, O any] struct {
	name        string
	description string
	funcParams  *jsonschema.Schema
	fn          func(context.Context, *I) (*O, error)
}

// NewFunc creates an ITool from a typed function.
func NewFunc[I any, O any](name, description string, fn func(context.Context, *I) (*O, error)) (*FuncTool[I, O], error) {
	var input I
	sc, err := schema.New(reflect.TypeOf(input))
	if err != nil {
		return nil, errors.WithMessagef(err, "failed to create schema for tool %s", name)
	}
	return &FuncTool[I, O]{
		name:        name,
		description: description,
		funcParams:  sc.Parameters,
		fn:          fn,
	}, nil
}

func (t *FuncTool[I, O]) Name() string {
	return t.name
}

func (t *FuncTool[I, O]) Description() string {
	return t.description
}

func (t *FuncTool[I, O]) Parameters() *jsonschema.Schema {
	return t.funcParams
}

// Run invokes the function with a typed input.
func (t *FuncTool[I, O]) Run(ctx context.Context, req *I) (*O, error) {
	return t.fn(ctx, req)
}

// Call implements ITool.
func (t *FuncTool[I, O]) Call(ctx context.Context, input string) (string, error) {
	var req I
	if err := ljson.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	res, err := t.fn(ctx, &req)
	if err != nil {
		return "", err
	}
	return chatmodel.Stringify(res), nil
}
