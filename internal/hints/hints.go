// Package hints provides actionable error hints for common capture failures.
// Hints are formatted consistently as "\n  hint: <text>" for appending to error messages.
package hints

import (
	"os"
	"strings"

	"github.com/alnah/go-snap2pdf/internal/fileutil"
)

// dockerenv is the marker file Docker creates in every container.
var dockerenv = "/.dockerenv"

// ciVars are set by the CI systems snap2pdf is known to run on.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}

// Runtime describes the process environment as far as launching Chrome
// is concerned.
type Runtime struct {
	Container       bool
	ContainerSignal string // what revealed the container, e.g. "/.dockerenv"
	CI              bool
	NoSandbox       bool   // ROD_NO_SANDBOX=1
	BrowserBin      string // ROD_BROWSER_BIN
}

// DetectRuntime inspects the environment. SNAP2PDF_CONTAINER=1 forces
// container detection for runtimes that leave no trace.
func DetectRuntime() Runtime {
	r := Runtime{
		NoSandbox:  os.Getenv("ROD_NO_SANDBOX") == "1",
		BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
	}

	switch {
	case os.Getenv("SNAP2PDF_CONTAINER") == "1":
		r.Container, r.ContainerSignal = true, "SNAP2PDF_CONTAINER=1"
	case fileutil.FileExists(dockerenv):
		r.Container, r.ContainerSignal = true, dockerenv
	case os.Getenv("container") != "":
		r.Container, r.ContainerSignal = true, "container="+os.Getenv("container")
	case os.Getenv("KUBERNETES_SERVICE_HOST") != "":
		r.Container, r.ContainerSignal = true, "KUBERNETES_SERVICE_HOST"
	}

	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			r.CI = true
			break
		}
	}
	return r
}

// NeedsNoSandbox reports whether Chrome will likely refuse to start with
// its sandbox enabled.
func (r Runtime) NeedsNoSandbox() bool {
	return (r.Container || r.CI) && !r.NoSandbox
}

// ForBrowserConnect returns hints for browser launch failures, based on
// the detected runtime.
func ForBrowserConnect() string {
	r := DetectRuntime()

	var hints []string
	if r.NeedsNoSandbox() {
		hints = append(hints, "set ROD_NO_SANDBOX=1 for Docker/CI")
	}
	if r.BrowserBin == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to use an installed Chrome")
	}
	hints = append(hints, "run snap2pdf doctor")
	return format(strings.Join(hints, "; "))
}

// ForTimeout returns a hint about raising the page load timeout.
func ForTimeout() string {
	return format("for slow pages, raise --timeout")
}

// ForAssetTimeout returns a hint for captures that proceeded with unsettled
// assets.
func ForAssetTimeout() string {
	return format("raise --asset-timeout if images are missing from the artifact")
}

// ForConfigNotFound suggests --config, or creating the file under the user
// config directory when that is one of the searched paths.
func ForConfigNotFound(searchedPaths []string) string {
	for _, p := range searchedPaths {
		if strings.Contains(p, ".config/go-snap2pdf") {
			return format("use --config /path/to/file.yaml or create " + p)
		}
	}
	return format("use --config /path/to/file.yaml")
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check parent directory exists and is writable")
}

// ForSelectorNotFound returns hints when the capture root cannot be found or
// has no layout area.
func ForSelectorNotFound(selector string) string {
	if selector == "" || selector == "body" {
		return format("the page rendered nothing; check the source loads in a browser")
	}
	return format("no visible element matches " + selector + "; check it is mounted and not display:none")
}

// ForTainted returns hints for cross-origin images that block pixel readback.
func ForTainted(sources []string) string {
	hint := "serve images with Access-Control-Allow-Origin or use --allow-tainted"
	if len(sources) > 0 {
		hint = "cross-origin: " + strings.Join(sources, ", ") + "; " + hint
	}
	return format(hint)
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}
