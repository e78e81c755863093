package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	segs, err := parseScript("60x120, 25x240 ,60x600")
	require.NoError(t, err)
	assert.Equal(t, []segment{{60, 120}, {25, 240}, {60, 600}}, segs)
	assert.Equal(t, 40*time.Millisecond, segs[1].Delta())
}

func TestParseScript_Errors(t *testing.T) {
	for _, script := range []string{"", " , ", "60", "60x", "x10", "0x10", "60x0", "-5x10", "fastx10"} {
		_, err := parseScript(script)
		assert.Error(t, err, script)
	}
}
