package pkg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCombinedWriter(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	cw := NewCombinedWriter(&buf1, &buf2)

	n, err := cw.Write([]byte("gains"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "gains", buf1.String())
	assert.Equal(t, "gains", buf2.String())
}
