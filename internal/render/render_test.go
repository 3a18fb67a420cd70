package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML_RendersMarkdown(t *testing.T) {
	out, err := NewHTML().Render("# Title\n\nsome **bold** text")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1>Title</h1>")
	assert.Contains(t, out, "<strong>bold</strong>")
}

func TestHTML_HardLineBreaks(t *testing.T) {
	out, err := NewHTML().Render("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, out, "<br")
}

func TestHTML_GFMTables(t *testing.T) {
	out, err := NewHTML().Render("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

func TestHTML_StripsScripts(t *testing.T) {
	out, err := NewHTML().Render("hi <script>alert(1)</script> [x](javascript:alert(1))")
	require.NoError(t, err)
	assert.NotContains(t, strings.ToLower(out), "<script")
	assert.NotContains(t, strings.ToLower(out), "javascript:")
}

func TestTerminal_Renders(t *testing.T) {
	r, err := NewTerminal(60)
	require.NoError(t, err)
	out, err := r.Render("# Heading\n\nbody text")
	require.NoError(t, err)
	assert.Contains(t, out, "Heading")
	assert.Contains(t, out, "body text")
}
