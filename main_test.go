package main

import (
	"bytes"
	"testing"

	"docscan/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.String()
}

func TestProfilesCommand(t *testing.T) {
	out := execute(t, "profiles")

	assert.Contains(t, out, "default  min area 15%")
	assert.Contains(t, out, "receipt  min area 10%")
	assert.Contains(t, out, "strict   min area 25%")
	assert.Contains(t, out, "delay 4s")
}

func TestProfilesShowRoundTrips(t *testing.T) {
	out := execute(t, "profiles", "show", "receipt")

	var p config.Profile
	require.NoError(t, yaml.Unmarshal([]byte(out), &p))
	assert.Equal(t, config.Receipt(), p)
}

func TestVersionCommand(t *testing.T) {
	assert.Contains(t, execute(t, "version"), "docscan ")
}

func TestScanRequiresArgs(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"scan"})
	cmd.SetOut(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

func TestCaptureRejectsUnknownUI(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"capture", "--ui", "tk", "--out", t.TempDir()})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.ErrorContains(t, cmd.Execute(), `unknown preview "tk"`)
}
