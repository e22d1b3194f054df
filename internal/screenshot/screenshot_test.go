package screenshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_ZeroValueIsPNG(t *testing.T) {
	var f Format
	assert.Equal(t, PNG, f)
}

func TestOutcome_FailureHasNoPath(t *testing.T) {
	o := Outcome{Err: ErrWindowMinimized}
	assert.False(t, o.Success)
	assert.Empty(t, o.Path)
	assert.ErrorIs(t, o.Err, ErrWindowMinimized)
}

func TestOutcome_SuccessCarriesPath(t *testing.T) {
	o := Outcome{Success: true, Path: "shot.png"}
	assert.NoError(t, o.Err)
	assert.Equal(t, "shot.png", o.Path)
}
