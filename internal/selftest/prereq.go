package selftest

import (
	"context"
	"os/exec"
	"regexp"
	"strconv"
)

// Conversion output depends on modern runtime semantics in the emitted
// code, so anything older than this major version fails the check.
const minNodeMajor = 18

var nodeVersionPattern = regexp.MustCompile(`v?(\d+)\.\d+\.\d+`)

// detectNodeVersion runs `node --version` and returns the raw output.
// Best effort: an empty string means the version could not be determined.
func detectNodeVersion(ctx context.Context) string {
	nodePath, err := exec.LookPath("node")
	if err != nil {
		return ""
	}
	// #nosec G204 - nodePath comes from exec.LookPath, not user input
	out, err := exec.CommandContext(ctx, nodePath, "--version").Output()
	if err != nil {
		return ""
	}
	return string(out)
}

// parseNodeMajor extracts the major version number from `node --version`
// output such as "v20.11.1". Returns 0 if parsing fails.
func parseNodeMajor(output string) int {
	m := nodeVersionPattern.FindStringSubmatch(output)
	if len(m) < 2 {
		return 0
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return major
}
