package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aniladanir/retry/v2"
	"github.com/aniladanir/retry/v2/retryconfig"
	"github.com/aniladanir/retry/v2/zaplog"
)

type runFlags struct {
	config      string
	name        string
	attempts    int
	backoff     string
	delay       time.Duration
	maxDelay    time.Duration
	jitter      bool
	retryOnExit []int
}

func newRunCmd() *cobra.Command {
	f := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] -- <command> [args...]",
		Short: "Run a command, retrying it on failure",
		Example: `  retry run -- curl -fsS https://example.com/health
  retry run --attempts 5 --backoff exponential --delay 200ms --jitter -- ./deploy.sh
  retry run --config retry.yaml --retry-on-exit 75 -- ./sync`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return &UsageError{Err: errors.New("missing command to run")}
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommand(cmd, f, args)
		},
	}

	flags := cmd.Flags()
	flags.SetInterspersed(false)
	flags.StringVarP(&f.config, "config", "c", "", "YAML file with the retry policy")
	flags.StringVar(&f.name, "name", retry.DefaultName, "Policy name used in logs")
	flags.IntVarP(&f.attempts, "attempts", "n", retry.DefaultMaxRetryAttempts, "Number of retries after the first attempt")
	flags.StringVar(&f.backoff, "backoff", retry.DefaultBackoffType.String(), "Backoff type: constant, linear or exponential")
	flags.DurationVarP(&f.delay, "delay", "d", retry.DefaultBaseDelay, "Base delay between attempts")
	flags.DurationVar(&f.maxDelay, "max-delay", 0, "Maximum delay between attempts (0 = no limit)")
	flags.BoolVar(&f.jitter, "jitter", retry.DefaultUseJitter, "Randomize delays")
	flags.IntSliceVar(&f.retryOnExit, "retry-on-exit", nil, "Only retry these exit codes (default: any non-zero)")

	return cmd
}

func runCommand(cmd *cobra.Command, f *runFlags, args []string) error {
	logger, err := newLogger(getVerboseFlag(cmd))
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	policy, err := buildPolicy(cmd, f, logger)
	if err != nil {
		return &UsageError{Err: err}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Debug("running command",
		zap.Strings("args", args),
		zap.String("policy", policy.Name),
		zap.Int("max_retry_attempts", policy.MaxRetryAttempts),
		zap.Stringer("backoff", policy.BackoffType),
		zap.Duration("base_delay", policy.BaseDelay),
	)

	_, err = retry.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		c := exec.CommandContext(ctx, args[0], args[1:]...)
		c.Stdin = cmd.InOrStdin()
		c.Stdout = cmd.OutOrStdout()
		c.Stderr = cmd.ErrOrStderr()

		err := c.Run()
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrPermission) {
			return struct{}{}, retry.NonRetryable(err)
		}
		return struct{}{}, err
	}, policy)
	if err != nil {
		logger.Error("command failed", zap.Strings("args", args), zap.Error(err))
		return err
	}

	return nil
}

// buildPolicy layers the config file, then explicitly set flags, over the defaults.
func buildPolicy(cmd *cobra.Command, f *runFlags, logger *zap.Logger) (*retry.Policy, error) {
	var opts []retry.Option

	if f.config != "" {
		cfg, err := retryconfig.Load(f.config)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f.config, err)
		}
		cfgOpts, err := cfg.Options()
		if err != nil {
			return nil, err
		}
		opts = append(opts, cfgOpts...)
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		opts = append(opts, retry.WithName(f.name))
	}
	if flags.Changed("attempts") {
		opts = append(opts, retry.WithMaxRetryAttempts(f.attempts))
	}
	if flags.Changed("backoff") {
		t, err := retry.ParseBackoffType(f.backoff)
		if err != nil {
			return nil, err
		}
		opts = append(opts, retry.WithBackoff(t))
	}
	if flags.Changed("delay") {
		opts = append(opts, retry.WithBaseDelay(f.delay))
	}
	if flags.Changed("max-delay") {
		opts = append(opts, retry.WithMaxDelay(f.maxDelay))
	}
	if flags.Changed("jitter") {
		opts = append(opts, retry.WithJitter(f.jitter))
	}
	if len(f.retryOnExit) > 0 {
		opts = append(opts, retry.WithShouldRetry(exitCodeFilter(f.retryOnExit)))
	}

	p, err := retry.NewPolicy(opts...)
	if err != nil {
		return nil, err
	}
	p.OnRetry = retry.ChainOnRetry(p.OnRetry, zaplog.OnRetry(logger, p.Name))

	return p, nil
}

func exitCodeFilter(codes []int) func(error) bool {
	return func(err error) bool {
		if !retry.DefaultShouldRetry(err) {
			return false
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return true
		}
		return slices.Contains(codes, exitErr.ExitCode())
	}
}
