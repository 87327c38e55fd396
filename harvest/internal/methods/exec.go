package methods

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"sync"
)

// toolProbe caches exec.LookPath results so a missing binary fails fast on
// every attempt without hitting the filesystem each time.
type toolProbe struct {
	mu    sync.Mutex
	known map[string]bool
}

var probe = &toolProbe{known: make(map[string]bool)}

func (p *toolProbe) installed(bin string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ok, seen := p.known[bin]; seen {
		return ok
	}
	_, err := exec.LookPath(bin)
	p.known[bin] = err == nil
	return err == nil
}

// ToolInstalled reports whether an external binary is available in PATH.
// Exposed so the service can report tool availability at startup.
func ToolInstalled(bin string) bool {
	return probe.installed(bin)
}

// runTool executes an external extraction tool and classifies its failure
// modes. The context carries the wall-clock budget: CommandContext kills the
// process when the deadline passes or the run is cancelled.
func runTool(ctx context.Context, log *slog.Logger, bin string, args ...string) ([]byte, ErrorKind) {
	if log == nil {
		log = slog.Default()
	}
	if !probe.installed(bin) {
		return nil, KindNotInstalled
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	// Context state wins over the process error: a killed process reports
	// an opaque exit failure, but the kill reason is what matters.
	if kind := classifyCtx(ctx); kind != KindNone {
		log.Debug("tool aborted", "bin", bin, "kind", string(kind))
		return nil, kind
	}

	if err != nil {
		combined := stderr.String() + stdout.String()
		if looksBlocked(combined) {
			log.Debug("tool blocked", "bin", bin, "stderr", truncateForLog(stderr.String()))
			return nil, KindBlocked
		}
		// Closed taxonomy: an unexplained tool failure is indistinguishable
		// from unusable output, so it classifies as malformed.
		log.Debug("tool failed", "bin", bin, "error", err, "stderr", truncateForLog(stderr.String()))
		return nil, KindMalformedOutput
	}

	return stdout.Bytes(), KindNone
}

func truncateForLog(s string) string {
	const max = 400
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
