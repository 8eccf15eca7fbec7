package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeter interface{ Greet() string }

type english struct{}

func (english) Greet() string { return "hello" }

type silent struct{}

func TestLookupByCapability(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register("en", english{}))
	require.NoError(t, reg.Register("mute", silent{}))

	g, err := Lookup[greeter](reg, "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", g.Greet())

	_, err = Lookup[greeter](reg, "mute")
	assert.True(t, errors.Is(err, ErrCapability))

	_, err = Lookup[greeter](reg, "missing")
	assert.True(t, errors.Is(err, ErrNotRegistered))

	_, err = Lookup[greeter](nil, "en")
	assert.True(t, errors.Is(err, ErrNotRegistered))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register("tasks", english{}))
	err := reg.Register("tasks", english{})
	assert.True(t, errors.Is(err, ErrDuplicate))

	reg.Unregister("tasks")
	require.NoError(t, reg.Register("tasks", english{}))
}

func TestAllAndNames(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register("b", english{}))
	require.NoError(t, reg.Register("a", english{}))
	require.NoError(t, reg.Register("c", silent{}))

	assert.Equal(t, []string{"a", "b", "c"}, reg.Names())
	assert.Len(t, All[greeter](reg), 2)
	assert.Nil(t, All[greeter](nil))
}
