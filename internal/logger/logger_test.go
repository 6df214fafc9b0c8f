package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetOutput(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		SetOutput(os.Stdout)
		SetLevel("info")
	})
}

func TestLevelFiltering(t *testing.T) {
	resetOutput(t)
	var buf bytes.Buffer
	SetOutput(&buf)

	SetLevel("warn")
	Infof("quiet %d", 1)
	Warnf("loud %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "quiet 1")
	assert.Contains(t, out, "loud 2")

	buf.Reset()
	SetLevel("debug")
	Debugf("verbose now")
	assert.Contains(t, buf.String(), "verbose now")
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	resetOutput(t)
	var buf bytes.Buffer
	SetOutput(&buf)

	SetLevel("nonsense")
	Debugf("hidden")
	Infof("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
}

func TestSetupFileWritesAndCreatesDirs(t *testing.T) {
	resetOutput(t)
	path := filepath.Join(t.TempDir(), "logs", "marketpulse.log")

	file, err := SetupFile(path)
	require.NoError(t, err)
	require.NotNil(t, file)
	defer file.Close()

	Infof("hello from the file sink")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the file sink")
}

func TestSetupFileEmptyPathIsNoop(t *testing.T) {
	resetOutput(t)
	file, err := SetupFile("   ")
	require.NoError(t, err)
	assert.Nil(t, file)
}
