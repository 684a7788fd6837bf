package runio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFieldsWhitespace(t *testing.T) {
	fields, err := SplitFields("  a  b c ", " ")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)
}

func TestSplitFieldsSingleChar(t *testing.T) {
	fields, err := SplitFields("a:b:c", ":")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)
}

func TestSplitFieldsRegex(t *testing.T) {
	fields, err := SplitFields("a1b22c", "[0-9]+")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)
}

func TestJoinFields(t *testing.T) {
	assert.Equal(t, "a-b-c", JoinFields([]string{"a", "b", "c"}, "-"))
}

func readAll(t *testing.T, m *Manager, rs string) []string {
	t.Helper()
	var records []string
	for {
		rec, _, _, ok, err := m.NextMainRecord(rs)
		require.NoError(t, err)
		if !ok {
			break
		}
		records = append(records, rec)
	}
	return records
}

func TestNextMainRecordDefaultNewline(t *testing.T) {
	m := New(nil, strings.NewReader("one\ntwo\nthree\n"), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, []string{"one", "two", "three"}, readAll(t, m, "\n"))
}

func TestNextMainRecordParagraphMode(t *testing.T) {
	m := New(nil, strings.NewReader("a\nb\n\n\nc\nd\n"), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, []string{"a\nb", "c\nd"}, readAll(t, m, ""))
}

func TestNextMainRecordSingleCharSeparator(t *testing.T) {
	m := New(nil, strings.NewReader("a;b;c"), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Equal(t, []string{"a", "b", "c"}, readAll(t, m, ";"))
}

func TestNextMainRecordTracksNewFile(t *testing.T) {
	m := New(nil, strings.NewReader("only\n"), &bytes.Buffer{}, &bytes.Buffer{})
	_, filename, newFile, ok, err := m.NextMainRecord("\n")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, newFile)
	assert.Equal(t, "-", filename)
}

func TestWriteToFileAndClose(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/out.txt"
	var out bytes.Buffer
	m := New(nil, strings.NewReader(""), &out, &out)

	require.NoError(t, m.Write(path, RedirectFile, "hello\n"))
	assert.Equal(t, 0, m.Close(path))
	assert.Equal(t, -1, m.Close(path))
}

func TestWriteToStdoutByDefault(t *testing.T) {
	var out bytes.Buffer
	m := New(nil, strings.NewReader(""), &out, &out)
	require.NoError(t, m.Write("", RedirectNone, "hi\n"))
	assert.Equal(t, "hi\n", out.String())
}

func TestSystemReturnsExitStatus(t *testing.T) {
	var out bytes.Buffer
	m := New(nil, strings.NewReader(""), &out, &out)
	assert.Equal(t, 0, m.System("true"))
	assert.NotEqual(t, 0, m.System("false"))
}
