package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/tristendillon/diagify/core/config"
	derrors "github.com/tristendillon/diagify/core/errors"
	"github.com/tristendillon/diagify/core/logger"
)

const stderrTail = 2000

// OutputDirEnv tells the generated code where its image is expected.
const OutputDirEnv = "DIAGIFY_OUTPUT_DIR"

type Limits struct {
	MaxMemoryBytes uint64
	MaxCPUSeconds  uint64
}

type Options struct {
	Interpreter  string
	Isolate      bool
	WorkDir      string
	ImagePattern string
	Timeout      time.Duration
	Limits       Limits
}

func OptionsFromConfig(cfg config.Execution) Options {
	return Options{
		Interpreter:  cfg.Interpreter,
		Isolate:      cfg.Isolate,
		ImagePattern: cfg.ImagePattern,
		Timeout:      time.Duration(cfg.TimeoutSeconds) * time.Second,
		Limits: Limits{
			MaxMemoryBytes: uint64(cfg.MaxMemoryMB) * 1024 * 1024,
			MaxCPUSeconds:  uint64(cfg.MaxCPUSeconds),
		},
	}
}

type Result struct {
	SourcePath string
	WorkDir    string
	Isolated   bool
	ImagePath  string
	Stdout     string
	Stderr     string
	Duration   time.Duration
}

type Executor struct {
	opts Options
}

func New(opts Options) *Executor {
	if opts.Interpreter == "" {
		opts.Interpreter = "python3"
	}
	if opts.ImagePattern == "" {
		opts.ImagePattern = DefaultImagePattern
	}
	return &Executor{opts: opts}
}

// Execute writes source to a temp .py file, runs it and returns the newest
// image it left in the working directory. The script file is kept.
func (e *Executor) Execute(ctx context.Context, source string) (Result, error) {
	var res Result

	workDir, err := e.workDir()
	if err != nil {
		return res, err
	}
	res.WorkDir = workDir
	res.Isolated = e.opts.Isolate

	script, err := writeScript(source)
	if err != nil {
		return res, derrors.Wrap(err, derrors.CodeExecution, "failed to write generated code")
	}
	res.SourcePath = script
	logger.Debug("Generated code written to %s", script)

	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, e.opts.Interpreter, script)
	cmd.Dir = workDir
	cmd.Env = append(os.Environ(), OutputDirEnv+"="+workDir)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	configureProcess(cmd)

	start := time.Now()
	runErr := e.run(cmd)
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	if runErr != nil {
		if tail := lastN(res.Stderr, stderrTail); tail != "" {
			logger.Error("Generated code stderr:\n%s", tail)
		}
		return res, e.executionError(ctx, runErr, script)
	}
	logger.Debug("Executed %s in %v", script, res.Duration)

	image, err := LatestImage(workDir, e.opts.ImagePattern)
	if err != nil {
		return res, err
	}
	res.ImagePath = image
	return res, nil
}

// Cleanup removes the private run directory of an isolated run. Shared
// working directories are never touched.
func (r Result) Cleanup() error {
	if !r.Isolated || r.WorkDir == "" {
		return nil
	}
	return os.RemoveAll(r.WorkDir)
}

func (e *Executor) run(cmd *exec.Cmd) error {
	if err := cmd.Start(); err != nil {
		return err
	}
	if err := applyLimits(cmd.Process.Pid, e.opts.Limits); err != nil {
		logger.Warn("Could not apply resource limits: %v", err)
	}
	return cmd.Wait()
}

func (e *Executor) executionError(ctx context.Context, err error, script string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return derrors.Wrap(ctx.Err(), derrors.CodeExecution, fmt.Sprintf("generated code timed out after %v", e.opts.Timeout)).
			WithContext(derrors.CtxPath, script)
	}
	de := derrors.Wrap(err, derrors.CodeExecution, "generated code failed").WithContext(derrors.CtxPath, script)
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		de.WithContext(derrors.CtxExitCode, exitErr.ExitCode())
	}
	return de
}

func (e *Executor) workDir() (string, error) {
	if e.opts.Isolate {
		dir, err := os.MkdirTemp("", "diagify-run-")
		if err != nil {
			return "", derrors.Wrap(err, derrors.CodeExecution, "failed to create run directory")
		}
		return dir, nil
	}
	if e.opts.WorkDir != "" {
		return e.opts.WorkDir, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("cannot determine working dir: %w", err)
	}
	return wd, nil
}

func writeScript(source string) (string, error) {
	f, err := os.CreateTemp("", "diagify-*.py")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(source); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return f.Name(), nil
}

func lastN(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
