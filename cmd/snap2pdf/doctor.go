package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	snap2pdf "github.com/alnah/go-snap2pdf"
	"github.com/alnah/go-snap2pdf/internal/fileutil"
	"github.com/alnah/go-snap2pdf/internal/hints"
	"github.com/alnah/go-snap2pdf/internal/host"
)

// versionTimeout bounds the "chrome --version" call.
const versionTimeout = 10 * time.Second

// Doctor statuses.
const (
	statusReady    = "ready"
	statusWarnings = "warnings"
	statusErrors   = "errors"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string     `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo `json:"chrome"`
	Env      envInfo    `json:"environment"`
	System   systemInfo `json:"system"`
	Warnings []string   `json:"warnings,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
	GOMAXPROCS   int  `json:"gomaxprocs"`
	Workers      int  `json:"workers"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 1 = errors found.
func runDoctorCmd(args []string, env *Environment) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(env.Stderr)
	jsonOutput := fs.Bool("json", false, "print the report as JSON")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitUsage
	}

	result := runDoctor()

	if *jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(env.Stderr, "error: writing report: %v\n", err)
			return ExitIO
		}
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == statusErrors {
		return ExitGeneral
	}
	return ExitSuccess
}

// doctorCheck inspects one aspect of the environment and records findings
// on the result.
type doctorCheck func(r *doctorResult)

// doctorChecks run in order; checkEnvironment fills Env before checkChrome
// reads the sandbox setting.
var doctorChecks = []doctorCheck{checkEnvironment, checkChrome, checkSystem}

// runDoctor performs all diagnostic checks.
func runDoctor() *doctorResult {
	result := &doctorResult{Env: envInfo{OS: runtime.GOOS, Arch: runtime.GOARCH}}
	for _, check := range doctorChecks {
		check(result)
	}

	switch {
	case len(result.Errors) > 0:
		result.Status = statusErrors
	case len(result.Warnings) > 0:
		result.Status = statusWarnings
	default:
		result.Status = statusReady
	}
	return result
}

func (r *doctorResult) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *doctorResult) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// checkEnvironment records container and CI detection.
func checkEnvironment(r *doctorResult) {
	rt := hints.DetectRuntime()
	r.Env.Container = rt.Container
	r.Env.ContainerHint = rt.ContainerSignal
	r.Env.CI = rt.CI
	r.Env.BrowserBin = rt.BrowserBin
	if rt.NoSandbox {
		r.Env.NoSandbox = "1"
	}
	if rt.NeedsNoSandbox() {
		r.warnf("Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// checkChrome locates the binary captures would launch. Without
// ROD_BROWSER_BIN a missing Chrome is only a warning: rod downloads
// Chromium on the first capture.
func checkChrome(r *doctorResult) {
	path, found := host.LookPath()
	switch {
	case !found && r.Env.BrowserBin != "":
		r.errorf("Chrome not found at %s (ROD_BROWSER_BIN)", path)
		return
	case !found:
		r.warnf("Chrome/Chromium not found; Chromium will be downloaded on first capture")
		return
	}

	r.Chrome.Found = true
	r.Chrome.Path = path
	r.Chrome.Sandbox = r.Env.NoSandbox != "1"

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()
	out, err := exec.CommandContext(ctx, path, "--version").Output() // #nosec G204 -- binary located by LookPath
	if err != nil {
		r.warnf("Could not get Chrome version: %v", err)
		return
	}
	r.Chrome.Version = strings.TrimSpace(string(out))
}

// checkSystem verifies inline HTML can be staged and reports pool sizing.
func checkSystem(r *doctorResult) {
	if _, cleanup, err := fileutil.WriteTempFile("<!doctype html>", "html"); err != nil {
		r.errorf("Temp directory not writable: %s", os.TempDir())
	} else {
		cleanup()
		r.System.TempWritable = true
	}

	r.System.GOMAXPROCS = runtime.GOMAXPROCS(0)
	r.System.Workers = snap2pdf.ResolvePoolSize(0)
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "snap2pdf doctor")

	section(w, "Chrome/Chromium")
	switch {
	case r.Chrome.Found:
		item(w, "OK", "Found at %s", r.Chrome.Path)
		if r.Chrome.Version != "" {
			item(w, "OK", "Version: %s", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			item(w, "OK", "Sandbox: enabled")
		} else {
			item(w, "OK", "Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	case r.Env.BrowserBin != "":
		item(w, "ERROR", "Not found at %s", r.Env.BrowserBin)
	default:
		item(w, "WARN", "Not found (downloaded on first capture)")
	}

	section(w, "Environment")
	item(w, "OK", "Platform: %s/%s", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		item(w, "OK", "Container: detected (%s)", r.Env.ContainerHint)
	}
	if r.Env.CI {
		item(w, "OK", "CI: detected")
	}

	section(w, "System")
	if r.System.TempWritable {
		item(w, "OK", "Temp directory: writable")
	} else {
		item(w, "ERROR", "Temp directory: not writable")
	}
	item(w, "OK", "Workers: %d (GOMAXPROCS %d)", r.System.Workers, r.System.GOMAXPROCS)

	if len(r.Warnings) > 0 {
		section(w, "Warnings:")
		for _, msg := range r.Warnings {
			item(w, "WARN", "%s", msg)
		}
	}
	if len(r.Errors) > 0 {
		section(w, "Errors:")
		for _, msg := range r.Errors {
			item(w, "ERROR", "%s", msg)
		}
	}

	fmt.Fprintln(w)
	switch r.Status {
	case statusReady:
		fmt.Fprintln(w, "Status: Ready to capture")
	case statusWarnings:
		fmt.Fprintln(w, "Status: Ready with warnings")
	case statusErrors:
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", title)
}

func item(w io.Writer, level, format string, args ...any) {
	fmt.Fprintf(w, "  [%s] %s\n", level, fmt.Sprintf(format, args...))
}
