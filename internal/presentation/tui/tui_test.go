package tui

import (
	"bytes"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"

	"github.com/aretw0/paneltree/pkg/domain"
)

func TestMarker_ASCIIProfile(t *testing.T) {
	assert.Equal(t, "●", Marker(termenv.Ascii, domain.VisibilitySelected))
	assert.Equal(t, "◐", Marker(termenv.Ascii, domain.VisibilityAncestor))
	assert.Equal(t, "○", Marker(termenv.Ascii, domain.VisibilityDescendant))
	assert.Equal(t, "·", Marker(termenv.Ascii, domain.VisibilityUnrelated))
}

func TestNewRenderer_NonTerminalPassthrough(t *testing.T) {
	render := NewRenderer(nil)
	out, err := render("# Title")
	assert.NoError(t, err)
	assert.Equal(t, "# Title", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
