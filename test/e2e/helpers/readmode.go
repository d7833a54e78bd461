package helpers

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"testing"
)

const binaryName = "readmode"

// RequireReadmode skips the test if readmode is not available in PATH
func RequireReadmode(t *testing.T) {
	t.Helper()

	if !IsReadmodeAvailable() {
		t.Skip("readmode not found in PATH")
	}
}

// IsReadmodeAvailable checks if readmode is available without skipping
func IsReadmodeAvailable() bool {
	_, err := exec.LookPath(binaryName)
	return err == nil
}

// RunReadmode runs readmode against the vault with stdin as input and
// returns its stdout
func (v *TempVault) RunReadmode(stdin string, args ...string) (string, error) {
	v.t.Helper()

	fullArgs := append([]string{"--vault", v.Dir}, args...)
	cmd := exec.Command(binaryName, fullArgs...)
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String(), fmt.Errorf("readmode %s failed: %w: %s", strings.Join(args, " "), err, stderr.String())
	}

	return stdout.String(), nil
}
