package sheet

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadWrite(t *testing.T) {
	headers := []string{"Company", "Country", "Website"}
	rows := [][]string{
		{"Acme", "US", "acme.com"},
		{"Globex", "DE", ""},
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "Companies", headers, rows))

	raw, err := Read(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, headers, raw.Headers)
	require.Len(t, raw.Rows, 2)
	assert.Equal(t, "Acme", raw.Rows[0][0])
	assert.Equal(t, "DE", raw.Rows[1][1])
}

func TestRead_EmptyWorkbookData(t *testing.T) {
	_, err := Read([]byte("not an xlsx file"))
	assert.Error(t, err)
}

func TestRead_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "Companies", []string{"Name"}, nil))

	raw, err := Read(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, []string{"Name"}, raw.Headers)
	assert.Empty(t, raw.Rows)
}

func TestReadFrom(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "Companies", []string{"Name"}, [][]string{{"Acme"}}))

	raw, err := ReadFrom(&buf)
	require.NoError(t, err)
	require.Len(t, raw.Rows, 1)
	assert.Equal(t, "Acme", raw.Rows[0][0])
}
