package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTags(t *testing.T) {
	tags, err := parseTags([]string{"lanes=2", "turn:lanes=left|right", "note=a=b"})
	require.NoError(t, err)
	require.Equal(t, map[string]string{"lanes": "2", "turn:lanes": "left|right", "note": "a=b"}, tags)

	_, err = parseTags([]string{"lanes"})
	require.Error(t, err)
	_, err = parseTags([]string{"=2"})
	require.Error(t, err)
}

func TestValidateCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := newValidateCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"lanes=2", "turn:lanes=left|through"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), `"valid": true`)

	out.Reset()
	cmd = newValidateCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"lanes=3", "turn:lanes=left|through"})
	require.Error(t, cmd.Execute())
	require.Contains(t, out.String(), `"valid": false`)
}
