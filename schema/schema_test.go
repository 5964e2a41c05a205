package schema_test

import (
	"reflect"
	"testing"

	"github.com/effective-security/chatagent/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City    string `json:"city"`
	Country string `json:"country,omitempty"`
}

type person struct {
	Name    string    `json:"name" jsonschema:"description=Full name of the person"`
	Age     int       `json:"age,omitempty"`
	Address *address  `json:"address,omitempty"`
	Tags    []string  `json:"tags,omitempty"`
	Friends []address `json:"friends,omitempty"`
}

func Test_Schema(t *testing.T) {
	s, err := schema.New(reflect.TypeOf(person{}))
	require.NoError(t, err)
	require.NotNil(t, s.Parameters)

	assert.Equal(t, "object", s.Parameters.Type)
	assert.Equal(t, []string{"name"}, s.RequiredKeys())

	name, ok := s.Parameters.Properties.Get("name")
	require.True(t, ok)
	assert.Equal(t, "string", name.Type)
	assert.Equal(t, "Full name of the person", name.Description)

	// nested $refs are resolved inline
	addr, ok := s.Parameters.Properties.Get("address")
	require.True(t, ok)
	assert.Empty(t, addr.Ref)
	city, ok := addr.Properties.Get("city")
	require.True(t, ok)
	assert.Equal(t, "string", city.Type)

	friends, ok := s.Parameters.Properties.Get("friends")
	require.True(t, ok)
	require.NotNil(t, friends.Items)
	assert.Empty(t, friends.Items.Ref)

	out := s.String()
	assert.Contains(t, out, `"Full name of the person"`)
	assert.NotContains(t, out, "$ref")
	assert.NotContains(t, out, "$defs")
}

func Test_Schema_Cached(t *testing.T) {
	s1, err := schema.New(reflect.TypeOf(person{}))
	require.NoError(t, err)
	s2, err := schema.New(reflect.TypeOf(person{}))
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}
