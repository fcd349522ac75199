package disk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitName_NoComma(t *testing.T) {
	raw, spec, err := splitName("floppy.img")
	assert.NoError(t, err)
	assert.Equal(t, "floppy.img", raw)
	assert.Equal(t, "", spec)
}

func TestSplitName_UnescapedCommaSeparatesSpec(t *testing.T) {
	raw, spec, err := splitName("hd0,1")
	assert.NoError(t, err)
	assert.Equal(t, "hd0", raw)
	assert.Equal(t, "1", spec)
}

func TestSplitName_EscapedCommaIsLiteral(t *testing.T) {
	raw, spec, err := splitName(`a\,b,2`)
	assert.NoError(t, err)
	assert.Equal(t, "a,b", raw)
	assert.Equal(t, "2", spec)
}

func TestSplitName_EscapedCommaWithNoSpec(t *testing.T) {
	raw, spec, err := splitName(`weird\,name`)
	assert.NoError(t, err)
	assert.Equal(t, "weird,name", raw)
	assert.Equal(t, "", spec)
}

func TestSplitName_OnlyFirstUnescapedCommaSplits(t *testing.T) {
	raw, spec, err := splitName("hd0,1,2")
	assert.NoError(t, err)
	assert.Equal(t, "hd0", raw)
	assert.Equal(t, "1,2", spec)
}
