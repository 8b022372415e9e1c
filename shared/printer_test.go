package shared

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterIndentsEveryLine(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter("│  ", NewWriteCloser(&buf))
	require.NoError(t, err)

	require.NoError(t, p.Writeln("first\nsecond", 1))
	assert.Equal(t, "│  first\n│  second\n", buf.String())
}

func TestPrinterBlock(t *testing.T) {
	var buf bytes.Buffer
	p, err := NewPrinter("  ", NewWriteCloser(&buf))
	require.NoError(t, err)

	require.NoError(t, p.Block(0, "Objects", "Chair: left, near", "Door: center, far"))
	assert.Equal(t, "Objects\n  Chair: left, near\n  Door: center, far\n", buf.String())
}

func TestNewPrinterRejectsMissingHooks(t *testing.T) {
	_, err := NewPrinter("  ")
	assert.Error(t, err)

	_, err = NewPrinter("  ", nil)
	assert.Error(t, err)
}
