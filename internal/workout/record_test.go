package workout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeSetRecord(t *testing.T) {
	assert.Equal(t, "100/3/10", EncodeSetRecord("100", "3", "10"))
	assert.Equal(t, "102.5/3/8", EncodeSetRecord("102.5", "3", "8"))
	assert.Equal(t, "0/0/0", EncodeSetRecord("", "", ""))
	assert.Equal(t, "80/0/12", EncodeSetRecord("80", " ", "12"))
}

func TestDecodeSetRecord(t *testing.T) {
	record := DecodeSetRecord("100/3/10")
	require.NotNil(t, record)
	assert.Equal(t, 100.0, record.Weight)
	assert.Equal(t, 3.0, record.Sets)
	assert.Equal(t, 10.0, record.Reps)

	record = DecodeSetRecord("102.5/3/8")
	require.NotNil(t, record)
	assert.Equal(t, 102.5, record.Weight)

	// garbage components parse to zero, not an error
	record = DecodeSetRecord("abc/3/10")
	require.NotNil(t, record)
	assert.Equal(t, 0.0, record.Weight)
	assert.Equal(t, 3.0, record.Sets)

	assert.Nil(t, DecodeSetRecord(""))
	assert.Nil(t, DecodeSetRecord("100/3"))
	assert.Nil(t, DecodeSetRecord("100/3/10/2"))
	assert.Nil(t, DecodeSetRecord("just a note"))
}

func TestSetRecord_IsZero(t *testing.T) {
	assert.True(t, SetRecord{}.IsZero())
	assert.True(t, DecodeSetRecord("0/0/0").IsZero())
	assert.False(t, SetRecord{Weight: 100}.IsZero())
	assert.False(t, SetRecord{Reps: 10}.IsZero())
}
