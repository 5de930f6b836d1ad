package cli

import (
	"fmt"
	"io"
	"os"
	"time"
)

// progress numbers the setup phases of a command on stderr:
//
//	[1/3] Opening database... done (4ms)
//	[2/3] Seeding listings... done, 24 listings (10ms)
//
// A nil *progress or *progressStep prints nothing, so callers never check
// whether output is enabled.
type progress struct {
	out   io.Writer
	total int
	next  int
	now   func() time.Time
}

type progressStep struct {
	p       *progress
	started time.Time
}

// newProgress returns a reporter for total steps, or nil when progress output
// is disabled. A total of zero leaves steps unnumbered.
func newProgress(total int) *progress {
	if !progressEnabled() {
		return nil
	}
	return &progress{out: os.Stderr, total: total, now: time.Now}
}

// startProgress reports a single unnumbered step.
func startProgress(label string) *progressStep {
	return newProgress(0).Step(label)
}

// Step prints label and starts timing it.
func (p *progress) Step(label string) *progressStep {
	if p == nil {
		return nil
	}
	p.next++
	if p.total > 0 {
		fmt.Fprintf(p.out, "[%d/%d] %s... ", p.next, p.total, label)
	} else {
		fmt.Fprintf(p.out, "%s... ", label)
	}
	return &progressStep{p: p, started: p.now()}
}

func (s *progressStep) Done() {
	s.DoneWith("")
}

// DoneWith finishes the step with a short result such as "24 listings".
func (s *progressStep) DoneWith(result string) {
	if s == nil {
		return
	}
	elapsed := formatDuration(s.p.now().Sub(s.started))
	if result == "" {
		fmt.Fprintf(s.p.out, "done (%s)\n", elapsed)
		return
	}
	fmt.Fprintf(s.p.out, "done, %s (%s)\n", result, elapsed)
}

func (s *progressStep) Skip(reason string) {
	if s == nil {
		return
	}
	fmt.Fprintf(s.p.out, "skipped (%s)\n", reason)
}

func (s *progressStep) Fail(err error) {
	if s == nil {
		return
	}
	if err != nil {
		fmt.Fprintf(s.p.out, "failed: %v\n", err)
		return
	}
	fmt.Fprintln(s.p.out, "failed")
}

func progressEnabled() bool {
	if IsJSONOutput() || IsJSONLOutput() {
		return false
	}
	if noProgress {
		return false
	}
	if _, ok := os.LookupEnv("VIBEALONG_NO_PROGRESS"); ok {
		return false
	}
	if _, ok := os.LookupEnv("NO_PROGRESS"); ok {
		return false
	}
	return true
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
