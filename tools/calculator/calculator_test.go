package calculator_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/chatmodel"
	"github.com/effective-security/chatagent/tools/calculator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Evaluate(t *testing.T) {
	tcases := []struct {
		expr string
		exp  string
	}{
		{"1+2", "3"},
		{"2+3*4", "14"},
		{"(2+3)*4", "20"},
		{"10/4", "2.5"},
		{"10%3", "1"},
		{"-5+3", "-2"},
		{"-(2+3)*2", "-10"},
		{"+7", "7"},
		{" 12 * ( 3.5 + 1 ) ", "54"},
		{"0.1+0.2", "0.3"},
		{"120.09*623.09", "74826.8781"},
	}
	for _, tc := range tcases {
		t.Run(tc.expr, func(t *testing.T) {
			val, err := calculator.Evaluate(tc.expr)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, val.String())
		})
	}
}

func Test_Evaluate_Rejected(t *testing.T) {
	tcases := []struct {
		expr string
		err  string
	}{
		{"__import__('os')", `unexpected character '_' at position 0`},
		{"1+2; rm -rf /", `unexpected character ';' at position 3`},
		{"2**3", `unexpected character '*' at position 3`},
		{"1/0", "division by zero"},
		{"5%0", "division by zero"},
		{"(1+2", "missing closing parenthesis"},
		{"1+", "unexpected end of expression"},
		{"", "unexpected end of expression"},
		{"1.2.3", `unexpected character '.' at position 3`},
		{"3.", `invalid number "3."`},
		{"abc", `unexpected character 'a' at position 0`},
	}
	for _, tc := range tcases {
		t.Run(tc.expr, func(t *testing.T) {
			_, err := calculator.Evaluate(tc.expr)
			require.Error(t, err)
			assert.EqualError(t, err, tc.err)
		})
	}
}

func Test_Calculator_Call(t *testing.T) {
	tool, err := calculator.New()
	require.NoError(t, err)

	assert.Equal(t, "Calculator", tool.Name())
	assert.NotEmpty(t, tool.Description())
	require.NotNil(t, tool.Parameters())
	assert.Contains(t, tool.Parameters().Required, "expression")

	ctx := context.Background()

	res, err := tool.Call(ctx, `{"expression": "120.09*623.09"}`)
	require.NoError(t, err)
	assert.Equal(t, `{"result":"74826.8781"}`, res)

	// prose-wrapped arguments still parse
	res, err = tool.Call(ctx, "```json\n{\"expression\": \"1+2\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, `{"result":"3"}`, res)

	_, err = tool.Call(ctx, `{"expression": "__import__('os')"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected character")

	_, err = tool.Call(ctx, `{"expression": ""}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty expression")

	_, err = tool.Call(ctx, `not a json`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, chatmodel.ErrFailedUnmarshalInput))
}

func Test_Calculator_Run(t *testing.T) {
	tool, err := calculator.New()
	require.NoError(t, err)

	res, err := tool.Run(context.Background(), &calculator.CalcRequest{Expression: "2+2*2"})
	require.NoError(t, err)
	assert.Equal(t, "6", res.Result)
}
