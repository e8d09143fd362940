//go:build !linux

package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOpenChip_Unsupported(t *testing.T) {
	_, err := OpenChip("gpiochip0")
	assert.Error(t, err)

	var c Chip
	assert.Error(t, c.SetMode(1, Output))
	assert.Error(t, c.Write(1, High))
	assert.NoError(t, c.Close())
}
