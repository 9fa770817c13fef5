package nmap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	scanerrors "github.com/khanhnv2901/webscan/internal/shared/errors"
	"go.uber.org/zap"
)

const (
	// DefaultBinary is looked up on PATH.
	DefaultBinary = "nmap"
	// DefaultTimeout bounds one scan.
	DefaultTimeout = 180 * time.Second
	// cipherScript enumerates TLS ciphers on detected services.
	cipherScript = "ssl-enum-ciphers"
	// waitDelay caps how long Run waits for output pipes after the process is killed.
	waitDelay = 2 * time.Second
)

// Runner invokes nmap with a fixed service-detection profile.
type Runner struct {
	Binary   string
	Timeout  time.Duration
	Logger   *zap.Logger
	LookPath func(file string) (string, error) // exec.LookPath when nil
}

// NewRunner returns a runner using nmap from PATH and the default timeout.
func NewRunner(logger *zap.Logger) *Runner {
	return &Runner{
		Binary:  DefaultBinary,
		Timeout: DefaultTimeout,
		Logger:  logger,
	}
}

func (r *Runner) binary() string {
	if r.Binary == "" {
		return DefaultBinary
	}
	return r.Binary
}

func (r *Runner) lookPath() (string, error) {
	lookup := r.LookPath
	if lookup == nil {
		lookup = exec.LookPath
	}
	return lookup(r.binary())
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Available reports whether the scanner binary is on PATH.
func (r *Runner) Available() bool {
	_, err := r.lookPath()
	return err == nil
}

// Args builds the argument list. ports is passed through unvalidated when non-empty.
func Args(host, ports string) []string {
	args := make([]string, 0, 8)
	if ports != "" {
		args = append(args, "-p", ports)
	}
	return append(args, "-sV", "--script", cipherScript, "-oX", "-", host)
}

// Scan runs nmap against host. Failures are reported in Result.Err, never returned.
// On timeout the process is killed before Scan returns.
func (r *Runner) Scan(ctx context.Context, host, ports string) Result {
	start := time.Now()
	log := r.logger().With(zap.String("host", host), zap.String("ports", ports))

	finish := func(res Result) Result {
		res.Duration = time.Since(start).Seconds()
		if res.Ports == nil {
			res.Ports = []PortRecord{}
		}
		return res
	}

	path, err := r.lookPath()
	if err != nil {
		log.Warn("nmap_unavailable", zap.Error(err))
		return finish(Result{Err: scanerrors.NewScanError(scanerrors.KindToolUnavailable, nil)})
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(scanCtx, path, Args(host, ports)...) // #nosec G204 -- fixed profile; host and ports are passed as discrete argv entries.
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	log.Info("nmap_started", zap.Strings("args", cmd.Args[1:]), zap.Duration("timeout", timeout))
	runErr := cmd.Run()

	if errors.Is(scanCtx.Err(), context.DeadlineExceeded) {
		log.Warn("nmap_timeout", zap.Duration("timeout", timeout))
		return finish(Result{Err: scanerrors.NewScanError(scanerrors.KindToolTimeout, nil)})
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		// nmap reports many host-level problems with a non-zero status but still writes XML.
		if !errors.As(runErr, &exitErr) || stdout.Len() == 0 {
			msg := runErr.Error()
			if detail := strings.TrimSpace(stderr.String()); detail != "" {
				msg = fmt.Sprintf("%s: %s", msg, detail)
			}
			log.Warn("nmap_failed", zap.String("error", msg))
			return finish(Result{Err: scanerrors.NewScanError(scanerrors.KindToolInvocation, errors.New(msg))})
		}
		log.Warn("nmap_nonzero_exit", zap.Int("exit_code", exitErr.ExitCode()))
	}

	output := stdout.String()
	res := Result{Output: output}
	parsed, err := Decode(strings.NewReader(output))
	if err != nil {
		log.Warn("nmap_output_unparsable", zap.Error(err))
		res.Ports = []PortRecord{}
		res.Err = scanerrors.NewScanError(scanerrors.KindParse, err)
	} else {
		res.Ports = parsed
	}

	res = finish(res)
	log.Info("nmap_completed", zap.Int("ports", len(res.Ports)), zap.Float64("duration_seconds", res.Duration))
	return res
}
