package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColourFormatter_PlainLayout(t *testing.T) {
	f := &ColourFormatter{Name: "neointerface", DisableColour: true}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2024, 3, 1, 9, 30, 15, 250_000_000, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "index already exists",
		Data:    logrus.Fields{"label": "car", "key": "vin"},
	}

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Equal(t,
		"2024-03-01 09:30:15,250    neointerface    WARNING    index already exists key=vin label=car\n",
		string(out))
}

func TestColourFormatter_Caller(t *testing.T) {
	f := &ColourFormatter{Name: "neointerface", DisableColour: true}
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Now(),
		Level:   logrus.InfoLevel,
		Message: "connected",
		Data:    logrus.Fields{},
		Caller:  &runtime.Frame{File: "/src/graph/client.go", Line: 88},
	}
	entry.Logger.SetReportCaller(true)

	out, err := f.Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "INFO    connected (client.go:88)")
}

func TestLevelName(t *testing.T) {
	assert.Equal(t, "DEBUG", levelName(logrus.DebugLevel))
	assert.Equal(t, "WARNING", levelName(logrus.WarnLevel))
	assert.Equal(t, "CRITICAL", levelName(logrus.FatalLevel))
}

func TestNew_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "neoi.log")
	l, err := New(Config{Level: "debug", OutputFile: path, Quiet: true})
	require.NoError(t, err)
	defer l.Close()

	l.Debug("dropped in quiet mode")
	l.Error("kept")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped in quiet mode")
	assert.Contains(t, string(data), "ERROR    kept")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestRotateIfNeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neoi.log")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("x"), 64), 0644))

	require.NoError(t, rotateIfNeeded(Config{OutputFile: path, MaxSize: 32, MaxBackups: 2}))

	_, err := os.Stat(path + ".1")
	assert.NoError(t, err)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Error("nothing")
	assert.Equal(t, logrus.PanicLevel, l.GetLevel())
}
