package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValueTable_SortedAndDashForEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, KeyValueTable(&buf, map[string]string{
		"version":   "v2.3.0",
		"installed": "true",
		"reason":    "",
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[3], "installed"))
	assert.True(t, strings.HasPrefix(lines[4], "reason"))
	assert.True(t, strings.HasSuffix(lines[4], "-"))
	assert.True(t, strings.HasPrefix(lines[5], "version"))
}

func TestTableWriter_NoBorder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableTo(&buf).WithHeaders("A", "B").WithBorder(false).AddRow("1", "2").Render())
	assert.Equal(t, "A  B\n1  2\n", buf.String())
}

func TestJSONTo(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSONTo(&buf, map[string]bool{"active": true}))
	assert.Equal(t, "{\n  \"active\": true\n}\n", buf.String())
}
