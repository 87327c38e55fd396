package methods

import (
	"context"
	"os"
	"testing"
	"time"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}

func TestClassifyCtx(t *testing.T) {
	// WHAT: Deadline expiry maps to timeout, cancellation to cancelled, a
	// live context to none.
	// WHY: The two kinds drive different cache behaviour: timeouts are
	// recorded as failures, cancellations are not recorded at all.
	live := context.Background()
	if kind := classifyCtx(live); kind != KindNone {
		t.Errorf("live ctx: %q", kind)
	}

	expired, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-expired.Done()
	if kind := classifyCtx(expired); kind != KindTimeout {
		t.Errorf("expired ctx: %q, want timeout", kind)
	}

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	if kind := classifyCtx(cancelled); kind != KindCancelled {
		t.Errorf("cancelled ctx: %q, want cancelled", kind)
	}
}

func TestToolInstalled_MissingBinary(t *testing.T) {
	// WHAT: A binary that is not on PATH reports not installed.
	// WHY: Methods must fail fast with not_installed instead of burning
	// their time budget on a doomed exec.
	if ToolInstalled("definitely-not-a-real-binary-48151623") {
		t.Fatal("nonexistent binary reported as installed")
	}
}

func TestRunTool_NotInstalledFastPath(t *testing.T) {
	// WHAT: runTool returns not_installed without executing anything.
	// WHY: The probe result is cached; repeated attempts stay cheap.
	out, kind := runTool(context.Background(), nil, "definitely-not-a-real-binary-48151623", "--version")
	if kind != KindNotInstalled {
		t.Fatalf("kind = %q, want not_installed", kind)
	}
	if out != nil {
		t.Errorf("unexpected output %q", out)
	}
}

func TestParsePlatform(t *testing.T) {
	// WHAT: Parsing is case-insensitive and trims whitespace; unknown keys
	// are rejected.
	// WHY: Platform keys arrive from config files and API payloads.
	if p, ok := ParsePlatform("  YouTube "); !ok || p != PlatformYouTube {
		t.Errorf("ParsePlatform(YouTube) = %q, %v", p, ok)
	}
	if _, ok := ParsePlatform("myspace"); ok {
		t.Error("unknown platform accepted")
	}
}
