package harness

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harshul/coderun/internal/metrics"
	"github.com/harshul/coderun/internal/process"
)

// Verdict is the score of one case.
type Verdict string

const (
	Pass          Verdict = "pass"
	Fail          Verdict = "fail"
	Indeterminate Verdict = "indeterminate"
)

// CaseResult is what one case produced.
type CaseResult struct {
	Case     Case
	Verdict  Verdict
	Actual   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Message  string
}

// Report aggregates a whole batch. It is rebuilt from scratch on every run.
type Report struct {
	Passed        int
	Failed        int
	Indeterminate int
	Total         int
	Messages      []string
	Results       []CaseResult
}

// AllPassed is true only when every case, indeterminate ones included,
// passed.
func (r Report) AllPassed() bool {
	return r.Total > 0 && r.Passed == r.Total
}

// Summary renders "passed/total".
func (r Report) Summary() string {
	return fmt.Sprintf("%d/%d", r.Passed, r.Total)
}

// Runner executes cases one at a time.
type Runner struct {
	// Dir is the working directory of the program under test.
	Dir     string
	Timeout time.Duration
	Logger  *zap.Logger
	Metrics *metrics.Recorder
}

// Run executes command once per case with stdin redirected from the case's
// input file. The exit code is reported but does not affect the verdict.
func (r *Runner) Run(ctx context.Context, command string, cases []Case) Report {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("harness")

	var rep Report
	for _, c := range cases {
		res := r.runCase(ctx, command, c)
		logger.Debug("case finished",
			zap.String("case", c.Name),
			zap.String("verdict", string(res.Verdict)),
			zap.Int("exit_code", res.ExitCode),
			zap.Duration("duration", res.Duration))
		if r.Metrics != nil {
			r.Metrics.TestCase(string(res.Verdict))
		}

		rep.Total++
		switch res.Verdict {
		case Pass:
			rep.Passed++
		case Fail:
			rep.Failed++
		default:
			rep.Indeterminate++
		}
		rep.Results = append(rep.Results, res)
		rep.Messages = append(rep.Messages, res.Message)
	}
	return rep
}

func (r *Runner) runCase(ctx context.Context, command string, c Case) CaseResult {
	res := CaseResult{Case: c}

	in, err := os.Open(c.InputPath)
	if err != nil {
		res.Verdict = Fail
		res.ExitCode = -1
		res.Message = fmt.Sprintf("%s: cannot open input: %v", c.Name, err)
		return res
	}
	defer in.Close()

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	spec := process.Shell(command)
	spec.Dir = r.Dir
	spec.Stdin = in
	out := process.Run(ctx, spec)

	res.Actual = string(out.Stdout)
	res.Stderr = string(out.Stderr)
	res.ExitCode = out.ExitCode
	res.Duration = out.Duration

	switch {
	case out.TimedOut:
		res.Verdict = Fail
		res.Message = fmt.Sprintf("%s: timed out after %s", c.Name, r.Timeout)
		return res
	case out.Err != nil:
		res.Verdict = Fail
		res.Message = fmt.Sprintf("%s: failed to run: %v", c.Name, out.Err)
		return res
	}

	if !c.HasExpected {
		res.Verdict = Indeterminate
		res.Message = fmt.Sprintf("%s: no expected output, skipped", c.Name)
		return res
	}
	expected, err := os.ReadFile(c.ExpectedPath)
	if err != nil {
		res.Verdict = Indeterminate
		res.Message = fmt.Sprintf("%s: cannot read expected output: %v", c.Name, err)
		return res
	}

	if Normalize(string(expected)) == Normalize(res.Actual) {
		res.Verdict = Pass
		res.Message = c.Name + ": passed"
	} else {
		res.Verdict = Fail
		res.Message = c.Name + ": wrong answer"
	}
	if res.ExitCode != 0 {
		res.Message += fmt.Sprintf(" (exit code %d)", res.ExitCode)
	}
	return res
}

// Normalize reads s the way a line-joined file read would: CRLF line ends
// become LF, content ending in "\n" keeps it, anything else gains one.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
