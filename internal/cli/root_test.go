package cli

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapchat/internal/cli/config"
	"github.com/leapstack-labs/leapchat/internal/testutil"
)

// isolate runs the test in an empty directory with no LEAPCHAT_* variables.
func isolate(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "LEAPCHAT_") || name == "BACKEND_URL" || name == "NEXT_PUBLIC_BACKEND_URL" {
			t.Setenv(name, "")
			require.NoError(t, os.Unsetenv(name))
		}
	}

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		config.ResetConfig()
	})
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRoot_Ask(t *testing.T) {
	isolate(t)
	backend, url := testutil.NewBackend(t)
	backend.Set(func(b *testutil.FakeBackend) { b.SQL = "SELECT name FROM cities" })

	out, _, err := execute(t, "--backend-url", url, "-o", "markdown", "ask", "Which", "cities?")
	require.NoError(t, err)
	assert.Equal(t, "```sql\nSELECT name FROM cities\n```\n", out)
	assert.Empty(t, backend.Ran())
}

func TestRoot_AskRun(t *testing.T) {
	isolate(t)
	backend, url := testutil.NewBackend(t)
	backend.Set(func(b *testutil.FakeBackend) {
		b.SQL = "SELECT name FROM cities"
		b.DF = `[{"name":"Medan"}]`
	})

	out, _, err := execute(t, "--backend-url", url, "-o", "markdown", "ask", "--run", "Which cities?")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT name FROM cities")
	assert.Contains(t, out, "| Medan |")
	assert.Equal(t, []string{"SELECT name FROM cities"}, backend.Ran())
}

func TestRoot_AskRunJSONPrintsOnlyTheResult(t *testing.T) {
	isolate(t)
	backend, url := testutil.NewBackend(t)
	backend.Set(func(b *testutil.FakeBackend) { b.DF = `[{"n":1}]` })

	out, _, err := execute(t, "--backend-url", url, "-o", "json", "ask", "-r", "Count?")
	require.NoError(t, err)
	assert.JSONEq(t, `{"shape":"table","columns":["n"],"rows":[[1]]}`, out)
}

func TestRoot_AskBackendError(t *testing.T) {
	isolate(t)
	backend, url := testutil.NewBackend(t)
	backend.Set(func(b *testutil.FakeBackend) { b.SQLError = "cannot answer that" })

	out, _, err := execute(t, "--backend-url", url, "-o", "json", "ask", "Nonsense?")
	require.NoError(t, err, "a backend-reported failure is output, not a command error")
	assert.JSONEq(t, `{"error":"cannot answer that"}`, out)
}

func TestRoot_Exec(t *testing.T) {
	isolate(t)
	backend, url := testutil.NewBackend(t)
	backend.Set(func(b *testutil.FakeBackend) { b.DF = `[]` })

	out, _, err := execute(t, "--backend-url", url, "-o", "markdown", "exec", "SELECT 1")
	require.NoError(t, err)
	assert.Contains(t, out, "Relevant data not found!")
	assert.Equal(t, []string{"SELECT 1"}, backend.Ran())
}

func TestRoot_ExecNeedsSQL(t *testing.T) {
	isolate(t)
	_, url := testutil.NewBackend(t)

	_, _, err := execute(t, "--backend-url", url, "exec")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SQL given")
}

func TestRoot_Questions(t *testing.T) {
	isolate(t)
	backend, url := testutil.NewBackend(t)
	backend.Set(func(b *testutil.FakeBackend) { b.Questions = []string{"How many cities?"} })

	out, _, err := execute(t, "--backend-url", url, "-o", "json", "questions")
	require.NoError(t, err)
	assert.JSONEq(t, `["How many cities?"]`, out)
}

func TestRoot_BackendUnreachable(t *testing.T) {
	isolate(t)
	backend, url := testutil.NewBackend(t)
	backend.Set(func(b *testutil.FakeBackend) { b.Status = 502 })

	_, _, err := execute(t, "--backend-url", url, "questions")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestRoot_RequiresBackend(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "ask", "anything")
	assert.ErrorIs(t, err, config.ErrNoBackend)
}

func TestRoot_BackendFromEnv(t *testing.T) {
	isolate(t)
	_, url := testutil.NewBackend(t)
	t.Setenv("NEXT_PUBLIC_BACKEND_URL", url)

	out, _, err := execute(t, "-o", "markdown", "ask", "One?")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT 1")
}

func TestRoot_Config(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("leapchat.yaml", []byte("backend_url: http://file:8000\nui:\n  session_secret: hunter2\n"), 0o600))

	out, _, err := execute(t, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "# config file: ")
	assert.Contains(t, out, "backend_url: http://file:8000")
	assert.Contains(t, out, "session_secret: '********'")
	assert.NotContains(t, out, "hunter2")
}

func TestRoot_InvalidConfig(t *testing.T) {
	isolate(t)

	_, _, err := execute(t, "--store-driver", "mongo", "config")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown store.driver")
}

func TestRoot_Version(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapChat v"+Version)
}

func TestRoot_Completion(t *testing.T) {
	isolate(t)

	out, _, err := execute(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapchat")

	_, _, err = execute(t, "completion", "tcsh")
	assert.Error(t, err)
}

func TestRoot_Commands(t *testing.T) {
	cmd := NewRootCmd()
	var names []string
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"ui", "chat", "repl", "ask", "exec", "questions", "config", "version", "completion"} {
		assert.Contains(t, names, want)
	}
}
