package cli_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/respond/internal/cli"
	"github.com/raysh454/respond/respond"
)

func runFormat(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	root := cli.NewRootCommand("test")
	var out bytes.Buffer
	root.SetIn(strings.NewReader(input))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"format"}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestFormat_Object(t *testing.T) {
	out, err := runFormat(t, `{"x": 1}`)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1,"status":200}`, out)

	out, err = runFormat(t, `{"x": 1}`, "--no-status")
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, out)
}

func TestFormat_ArrayBecomesNDJSON(t *testing.T) {
	out, err := runFormat(t, `[{"val":1,"name":"Sam"},{"val":2,"name":"Ann"}]`)
	require.NoError(t, err)
	assert.Equal(t, "{\"val\":1,\"name\":\"Sam\"}\n{\"val\":2,\"name\":\"Ann\"}\n", out)

	out, err = runFormat(t, `[{"val":1}]`, "--record-status")
	require.NoError(t, err)
	assert.Equal(t, "{\"val\":1,\"status\":200}\n", out)
}

func TestFormat_Callback(t *testing.T) {
	out, err := runFormat(t, `{"x":1}`, "--callback", "foo")
	require.NoError(t, err)
	assert.Equal(t, `foo({"x":1});`, out)

	out, err = runFormat(t, `"hi"`, "--mode", "jsonp", "--callback", "foo")
	require.NoError(t, err)
	assert.Equal(t, `foo("hi");`, out)
}

func TestFormat_Errors(t *testing.T) {
	_, err := runFormat(t, `42`)
	assert.True(t, errors.Is(err, respond.ErrUnsupportedPayload))

	_, err = runFormat(t, `{}`, "--mode", "xml")
	assert.Error(t, err)

	_, err = runFormat(t, `{}`, "extra")
	assert.Error(t, err)
}

func TestFormat_InvalidInput(t *testing.T) {
	for _, mode := range []string{"json", "jsonl", "jsonp"} {
		out, err := runFormat(t, "not json\n", "--mode", mode)
		assert.True(t, errors.Is(err, respond.ErrInvalidJSON), "%s: %v", mode, err)
		assert.NotContains(t, out, "null")

		_, err = runFormat(t, `{"a":1} trailing`, "--mode", mode)
		assert.True(t, errors.Is(err, respond.ErrInvalidJSON), "%s: %v", mode, err)
	}
}

func TestServe_RejectsBadConfig(t *testing.T) {
	root := cli.NewRootCommand("test")
	root.SetArgs([]string{"serve", "--config", "/nonexistent/respond.yaml"})
	root.SetOut(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}
