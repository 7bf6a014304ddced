package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollectSerializeKeepsFieldOrder(t *testing.T) {
	c := Collect{Fields: []string{"name", "qty", "unit"}}

	got := c.Serialize(map[string]string{"unit": "g", "name": "flour"})

	assert.Equal(t, "name=flour, qty=, unit=g", got)
}

func TestCollectValuesFillsMissingFields(t *testing.T) {
	c := Collect{Fields: []string{"name", "qty"}}

	got := c.Values(map[string]string{"name": "salt", "extra": "ignored"})

	assert.Equal(t, map[string]string{"name": "salt", "qty": ""}, got)
}

func TestIsConfirmOption(t *testing.T) {
	for _, opt := range []string{"yes", "no", "rewrite"} {
		assert.True(t, IsConfirmOption(opt), opt)
	}
	assert.False(t, IsConfirmOption("Yes"))
	assert.False(t, IsConfirmOption("maybe"))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" SQL ")
	assert.NoError(t, err)
	assert.Equal(t, ModeSQL, m)

	_, err = ParseMode("postgres")
	assert.Error(t, err)
	assert.Equal(t, ModeMongo, ModeSQL.Toggle())
}
