package tools_test

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/chatagent/mocks/mocktools"
	"github.com/effective-security/chatagent/tools"
	"github.com/effective-security/chatagent/tools/calculator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Registry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	calc, err := calculator.New()
	require.NoError(t, err)

	weather := mocktools.NewMockITool(ctrl)
	weather.EXPECT().Name().Return("get_weather").AnyTimes()
	weather.EXPECT().Description().Return("Returns the weather for a location.").AnyTimes()
	weather.EXPECT().Parameters().Return(nil).AnyTimes()

	reg, err := tools.NewRegistry(calc, weather)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	// advertisement preserves registration order
	assert.Equal(t, []string{"Calculator", "get_weather"}, reg.Names())
	defs := reg.Definitions()
	require.Equal(t, 2, len(defs))
	assert.Equal(t, "function", defs[0].Type)
	assert.Equal(t, "Calculator", defs[0].Function.Name)
	assert.Equal(t, "get_weather", defs[1].Function.Name)

	// lookup tolerates case drift
	assert.NotNil(t, reg.Find("calculator"))
	assert.NotNil(t, reg.Find("CALCULATOR"))
	assert.Nil(t, reg.Find("get_stock_price"))

	// duplicate names are rejected, including by case
	dup := mocktools.NewMockITool(ctrl)
	dup.EXPECT().Name().Return("CALCULATOR").AnyTimes()
	err = reg.Register(dup)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tools.ErrDuplicateTool))
	assert.Equal(t, 2, reg.Len())
}
