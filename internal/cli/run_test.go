package cli

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aniladanir/retry/v2"
)

func executeCmd(t *testing.T, args ...string) (string, *observer.ObservedLogs, error) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	original := newLogger
	newLogger = func(bool) (*zap.Logger, error) {
		return zap.New(core), nil
	}
	t.Cleanup(func() { newLogger = original })

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.Execute()
	return out.String(), logs, err
}

func retries(logs *observer.ObservedLogs) int {
	return logs.FilterMessage("retrying operation").Len()
}

func TestRunSuccess(t *testing.T) {
	out, logs, err := executeCmd(t, "run", "--", "echo", "hello")

	require.NoError(t, err)
	assert.Equal(t, "hello\n", out)
	assert.Zero(t, retries(logs))
}

func TestRunExhaustsAttempts(t *testing.T) {
	_, logs, err := executeCmd(t, "run", "--attempts", "2", "--delay", "1ms", "--", "false")

	var exitErr *exec.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 1, exitErr.ExitCode())
	assert.Equal(t, 2, retries(logs))
	assert.Equal(t, 1, ExitCodeForError(err))
}

func TestRunWithoutSeparator(t *testing.T) {
	out, _, err := executeCmd(t, "run", "--delay", "1ms", "echo", "-n", "ok")

	require.NoError(t, err)
	assert.Equal(t, "ok", out)
}

func TestRunCommandNotFound(t *testing.T) {
	_, logs, err := executeCmd(t, "run", "--delay", "1ms", "--", "definitely-not-a-command-3f9a")

	require.Error(t, err)
	assert.ErrorIs(t, err, exec.ErrNotFound)
	assert.True(t, retry.IsNonRetryable(err))
	assert.Zero(t, retries(logs))
}

func TestRunRetryOnExit(t *testing.T) {
	t.Run("should not retry unlisted exit codes", func(t *testing.T) {
		_, logs, err := executeCmd(t, "run", "--delay", "1ms", "--retry-on-exit", "75", "--", "sh", "-c", "exit 3")

		require.Error(t, err)
		assert.Equal(t, 3, ExitCodeForError(err))
		assert.Zero(t, retries(logs))
	})

	t.Run("should retry listed exit codes", func(t *testing.T) {
		_, logs, err := executeCmd(t, "run", "--delay", "1ms", "--attempts", "1", "--retry-on-exit", "3,75", "--", "sh", "-c", "exit 3")

		require.Error(t, err)
		assert.Equal(t, 3, ExitCodeForError(err))
		assert.Equal(t, 1, retries(logs))
	})
}

func TestRunConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "retry.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\nmax_retry_attempts: 1\nbase_delay: 1ms\n"), 0o600))

	t.Run("should use the file values", func(t *testing.T) {
		_, logs, err := executeCmd(t, "run", "--config", path, "--", "false")

		require.Error(t, err)
		require.Equal(t, 1, retries(logs))
		assert.Equal(t, "from-file", logs.FilterMessage("retrying operation").All()[0].ContextMap()["policy"])
	})

	t.Run("should let flags override the file", func(t *testing.T) {
		_, logs, err := executeCmd(t, "run", "--config", path, "--attempts", "3", "--", "false")

		require.Error(t, err)
		assert.Equal(t, 3, retries(logs))
	})

	t.Run("should fail on a missing file", func(t *testing.T) {
		_, _, err := executeCmd(t, "run", "--config", filepath.Join(t.TempDir(), "missing.yaml"), "--", "true")

		assert.Equal(t, ExitUsage, ExitCodeForError(err))
	})
}

func TestRunUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "missing command", args: []string{"run"}},
		{name: "unknown backoff", args: []string{"run", "--backoff", "fibonacci", "--", "true"}},
		{name: "negative attempts", args: []string{"run", "--attempts", "-1", "--", "true"}},
		{name: "bad duration", args: []string{"run", "--delay", "soon", "--", "true"}},
		{name: "unknown flag", args: []string{"run", "--forever", "--", "true"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := executeCmd(t, tt.args...)

			require.Error(t, err)
			assert.Equal(t, ExitUsage, ExitCodeForError(err))
		})
	}
}

func TestBuildPolicy(t *testing.T) {
	cmd := newRunCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--name", "deploy",
		"--attempts", "5",
		"--backoff", "exponential",
		"--delay", "100ms",
		"--max-delay", "2s",
		"--jitter",
	}))

	f := &runFlags{}
	f.name, _ = cmd.Flags().GetString("name")
	f.attempts, _ = cmd.Flags().GetInt("attempts")
	f.backoff, _ = cmd.Flags().GetString("backoff")
	f.delay, _ = cmd.Flags().GetDuration("delay")
	f.maxDelay, _ = cmd.Flags().GetDuration("max-delay")
	f.jitter, _ = cmd.Flags().GetBool("jitter")

	p, err := buildPolicy(cmd, f, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "deploy", p.Name)
	assert.Equal(t, 5, p.MaxRetryAttempts)
	assert.Equal(t, retry.Exponential, p.BackoffType)
	assert.Equal(t, 100*time.Millisecond, p.BaseDelay)
	assert.Equal(t, 2*time.Second, p.MaxDelay)
	assert.True(t, p.UseJitter)
	assert.NotNil(t, p.OnRetry)
}

func TestExitCodeFilter(t *testing.T) {
	filter := exitCodeFilter([]int{75})

	assert.True(t, filter(errors.New("not an exit error")))
	assert.False(t, filter(retry.NonRetryable(errors.New("marked"))))

	err := exec.Command("sh", "-c", "exit 75").Run()
	assert.True(t, filter(err))

	err = exec.Command("sh", "-c", "exit 1").Run()
	assert.False(t, filter(err))
}

func TestExitCodeForError(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCodeForError(nil))
	assert.Equal(t, ExitError, ExitCodeForError(errors.New("boom")))
	assert.Equal(t, ExitUsage, ExitCodeForError(&UsageError{Err: errors.New("bad flag")}))

	err := exec.Command("sh", "-c", "exit 7").Run()
	assert.Equal(t, 7, ExitCodeForError(err))
}

func TestVersion(t *testing.T) {
	original := version
	version = "v2.0.0-test"
	t.Cleanup(func() { version = original })

	out, _, err := executeCmd(t, "version")

	require.NoError(t, err)
	assert.Equal(t, "retry v2.0.0-test\n", out)
}
