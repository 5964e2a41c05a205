// Package calculator provides an arithmetic evaluation tool.
//
// Expressions are parsed with a closed arithmetic grammar and evaluated over
// exact decimals. Anything outside that grammar is rejected: the expression
// string comes from the model and must never reach a general-purpose
// evaluation path.
package calculator

import (
	"context"
	"reflect"

	"github.com/bububa/ljson"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/pkg/llmutils"
	"github.com/effective-security/chatagent/schema"
	"github.com/effective-security/chatagent/tools"
	"github.com/invopop/jsonschema"
)

const ToolName = "Calculator"

// CalcRequest represents the tool input.
type CalcRequest struct {
	Expression string `json:"expression" yaml:"expression" jsonschema:"title=expression,description=The arithmetic expression to evaluate. Supports + - * / % and parentheses."`
}

// CalcResult represents the evaluation result.
type CalcResult struct {
	Result string `json:"result" yaml:"result" jsonschema:"title=result,description=The evaluated value."`
}

func (r *CalcResult) GetContent() string {
	return llmutils.ToJSON(r)
}

// Tool evaluates arithmetic expressions.
type Tool struct {
	name        string
	description string
	funcParams  *jsonschema.Schema
}

var _ tools.Tool[CalcRequest, CalcResult] = (*Tool)(nil)

func New() (*Tool, error) {
	sc, err := schema.New(reflect.TypeOf(CalcRequest{}))
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create schema")
	}
	return &Tool{
		name:        ToolName,
		description: "Evaluates an arithmetic expression, for example \"12 * (3.5 + 1)\". Supports addition, subtraction, multiplication, division, modulo and parentheses.",
		funcParams:  sc.Parameters,
	}, nil
}

func (t *Tool) Name() string {
	return t.name
}

func (t *Tool) Description() string {
	return t.description
}

func (t *Tool) Parameters() *jsonschema.Schema {
	return t.funcParams
}

func (t *Tool) Run(ctx context.Context, req *CalcRequest) (*CalcResult, error) {
	if req.Expression == "" {
		return nil, errors.New("invalid request: empty expression")
	}
	val, err := Evaluate(req.Expression)
	if err != nil {
		return nil, err
	}
	return &CalcResult{Result: val.String()}, nil
}

func (t *Tool) Call(ctx context.Context, input string) (string, error) {
	var req CalcRequest
	if err := ljson.Unmarshal(llmutils.CleanJSON([]byte(input)), &req); err != nil {
		return "", errors.WithStack(chatmodel.ErrFailedUnmarshalInput)
	}
	res, err := t.Run(ctx, &req)
	if err != nil {
		return "", err
	}
	return res.GetContent(), nil
}
