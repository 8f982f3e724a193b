package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/notargets/clmatvec/report"
	"github.com/notargets/clmatvec/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	color.NoColor = true
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "error"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRunOnEmulator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	out, err := execute(t, "run", "--backend", "emulator",
		"--source", utils.KernelPath("matvec.cl"), "--report", path, "--show-inputs")
	require.NoError(t, err)
	assert.Contains(t, out, "result[1] = 228, correct[1] = 228")
	assert.Contains(t, out, "matrix =")

	r, err := report.Load(path)
	require.NoError(t, err)
	assert.True(t, r.Passed())
	assert.Equal(t, "emulator", r.Backend)
	assert.Len(t, r.Elements, 4)
}

func TestRunMissingSource(t *testing.T) {
	out, err := execute(t, "run", "--backend", "emulator",
		"--source", filepath.Join(t.TempDir(), "missing.cl"))
	require.Error(t, err)
	assert.Contains(t, out, "✗ SourceUnreadable after DeviceSelected")
}

func TestRunOtherShape(t *testing.T) {
	out, err := execute(t, "run", "--backend", "emulator",
		"--source", utils.KernelPath("matvec.cl"), "--rows", "2", "--cols", "3")
	require.NoError(t, err)
	// [0 2 4; 6 8 10] * [0 3 6]
	assert.Contains(t, out, "result[0] = 30")
	assert.Contains(t, out, "result[1] = 84")
}

func TestDevices(t *testing.T) {
	out, err := execute(t, "devices", "--backend", "emulator")
	require.NoError(t, err)
	assert.Regexp(t, `(?m)^Emulator\s+Emulated GPU\s+gpu$`, out)

	out, err = execute(t, "devices", "--backend", "emulator", "--yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "device: Emulated GPU")
	assert.Contains(t, out, "class: gpu")
}

func TestInvalidBackend(t *testing.T) {
	_, err := execute(t, "devices", "--backend", "vulkan")
	assert.Error(t, err)
}
