package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	t.Run("matches outer code", func(t *testing.T) {
		err := New(CodeParse, "bad xml")
		assert.True(t, HasCode(err, CodeParse))
		assert.False(t, HasCode(err, CodeSignature))
	})

	t.Run("matches code of wrapped cause", func(t *testing.T) {
		inner := New(CodeSchemaValidation, "missing entityID")
		err := Wrap(inner, CodeInternal, "parse failed")
		assert.True(t, HasCode(err, CodeInternal))
		assert.True(t, HasCode(err, CodeSchemaValidation))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("source a: %w", New(CodeAlreadyPresent, "dup"))
		assert.True(t, Is(err, CodeAlreadyPresent))
	})

	t.Run("plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))

	cause := errors.New("eof")
	err := Wrap(cause, CodeParse, "failed to parse")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to parse: eof", err.Error())
	assert.Equal(t, CodeParse, CodeOf(err))
	assert.Equal(t, CodeInternal, CodeOf(cause))
}
