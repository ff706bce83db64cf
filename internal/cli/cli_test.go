package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout, stderr and
// the exit code.
func execute(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--no-color"}, args...))
	err := cmd.Execute()
	code := ExitSuccess
	if err != nil {
		code = GetExitCode(err)
	}
	return out.String(), errOut.String(), code
}

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "goxq", cmd.Use)

	for _, name := range []string{"run", "nav", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)

	_, _, code := execute(t, "--format", "xml", "version")
	assert.NotEqual(t, ExitSuccess, code)
}

func TestRunWithBindings(t *testing.T) {
	p := write(t, "add.yaml", `{"+": [{var: x}, 1]}`)

	out, _, code := execute(t, "run", p, "--bind", "x=41")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "42\n", out)

	out, _, code = execute(t, "run", p, "-b", "$x=0.5")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "1.5\n", out)

	_, _, code = execute(t, "run", p)
	assert.Equal(t, ExitCommandError, code)

	_, _, code = execute(t, "run", p, "--bind", "x")
	assert.Equal(t, ExitCommandError, code)
}

func TestRunOverDocument(t *testing.T) {
	doc := write(t, "doc.xml", `<r><a/><b/></r>`)
	p := write(t, "path.yaml", `
path: {root: ~}
steps:
  - {axis: descendant, test: b}
`)
	out, _, code := execute(t, "run", p, "--doc", doc)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "3: element b { ... }\n", out)
}

func TestRunLimit(t *testing.T) {
	p := write(t, "range.yaml", `{to: [1, 1000000000]}`)
	out, _, code := execute(t, "run", p, "--limit", "2")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "1\n2\n", out)
}

func TestRunQueryError(t *testing.T) {
	p := write(t, "error.yaml", `[1, {call: error, args: [{str: "err:FOER0000"}, {str: "boom"}]}]`)
	out, errOut, code := execute(t, "run", p)
	assert.Equal(t, ExitFailure, code)
	assert.Equal(t, "1\n", out)
	assert.Contains(t, errOut, "Error [err:FOER0000]: boom")

	out, _, code = execute(t, "--format", "json", "run", p)
	assert.Equal(t, ExitFailure, code)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "err:FOER0000", resp.Error.Code)
}

func TestRunJSON(t *testing.T) {
	p := write(t, "list.yaml", `[{call: output, args: [{str: "side"}]}, 1, {str: "a"}]`)
	out, _, code := execute(t, "--format", "json", "run", p)
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Status  string    `json:"status"`
		Data    RunResult `json:"data"`
		QueryID string    `json:"query_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"1", "a"}, resp.Data.Items)
	assert.Equal(t, []string{"side"}, resp.Data.Output)
	assert.NotEmpty(t, resp.QueryID)
}

func TestExplain(t *testing.T) {
	p := write(t, "let.yaml", `
let: x
be: 1
return: {"+": [{var: x}, {var: y}]}
`)
	out, _, code := execute(t, "run", p, "--explain")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "(1 + $y)")
	assert.Contains(t, out, "externals\n  $y")
	assert.Contains(t, out, "OPTINLINE")
}

func TestRunInvalidPlan(t *testing.T) {
	p := write(t, "bad.yaml", `{nope: 1}`)
	_, errOut, code := execute(t, "run", p)
	assert.Equal(t, ExitCommandError, code)
	assert.Contains(t, errOut, ErrCodeCompile)

	_, _, code = execute(t, "run", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, ExitCommandError, code)
}

func TestConfig(t *testing.T) {
	cfgPath := write(t, "goxq.yaml", `
timeout: 2s
bindings:
  x: 9
`)
	cfg, err := LoadConfig(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "2s", cfg.Timeout.String())
	assert.Nil(t, cfg.XMLOptions())

	p := write(t, "add.yaml", `{"+": [{var: x}, 1]}`)
	out, _, code := execute(t, "--config", cfgPath, "run", p)
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "10\n", out)

	// flags win over config bindings
	out, _, code = execute(t, "--config", cfgPath, "run", p, "-b", "x=1")
	require.Equal(t, ExitSuccess, code)
	assert.Equal(t, "2\n", out)

	_, err = LoadConfig(write(t, "bad.yaml", `collation: "not a tag!"`))
	require.Error(t, err)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Timeout)
}

func TestNav(t *testing.T) {
	doc := write(t, "doc.xml", `<r><a/><b/></r>`)

	out, _, code := execute(t, "nav", doc)
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "pre\tkind\tsize")

	out, _, code = execute(t, "nav", doc, "--pre", "1", "--axis", "child")
	require.Equal(t, ExitSuccess, code)
	assert.Contains(t, out, "  2: element a { ... }\n  3: element b { ... }\n")

	out, _, code = execute(t, "--format", "json", "nav", doc, "-p", "3", "-a", "ancestor")
	require.Equal(t, ExitSuccess, code)
	var resp struct {
		Data []NavRow `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "r", resp.Data[0].Name)
	assert.Equal(t, 0, resp.Data[1].Pre)

	_, _, code = execute(t, "nav", doc, "--pre", "9")
	assert.Equal(t, ExitCommandError, code)
	_, _, code = execute(t, "nav", doc, "--pre", "1", "--axis", "sideways")
	assert.Equal(t, ExitCommandError, code)
}
