package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLines(t *testing.T) {
	lines, err := readLines(strings.NewReader("MG Road, Hyderabad\n\n  \r\n 12 Ameerpet \n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"MG Road, Hyderabad", "12 Ameerpet"}, lines)
}

func TestReadLines_Empty(t *testing.T) {
	lines, err := readLines(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReadLines_Latin1(t *testing.T) {
	lines, err := readLines(strings.NewReader("Caf\xe9 Road, Hyderabad\nMG Road, Guntur\n"))
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.True(t, utf8.ValidString(lines[0]))
	assert.Equal(t, "Café Road, Hyderabad", lines[0])
	assert.Equal(t, "MG Road, Guntur", lines[1])
}
