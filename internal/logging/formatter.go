package logging

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

const defaultTimestampFormat = "2006-01-02 15:04:05,000"

// ColourFormatter renders entries as
//
//	<time>    <name>    <LEVEL>    <message> key=value ... (file.go:42)
//
// with the level colouring applied to the whole line.
type ColourFormatter struct {
	Name            string
	TimestampFormat string
	DisableColour   bool
}

var levelColours = map[logrus.Level]*color.Color{
	logrus.TraceLevel: color.New(color.FgBlue),
	logrus.DebugLevel: color.New(color.FgBlue),
	logrus.InfoLevel:  color.New(color.FgHiBlack),
	logrus.WarnLevel:  color.New(color.FgYellow),
	logrus.ErrorLevel: color.New(color.FgRed),
	logrus.FatalLevel: color.New(color.FgRed, color.Bold),
	logrus.PanicLevel: color.New(color.FgRed, color.Bold),
}

func levelName(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return "WARNING"
	case logrus.FatalLevel, logrus.PanicLevel:
		return "CRITICAL"
	default:
		return strings.ToUpper(level.String())
	}
}

// Format implements logrus.Formatter
func (f *ColourFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFormat := f.TimestampFormat
	if tsFormat == "" {
		tsFormat = defaultTimestampFormat
	}

	var line strings.Builder
	line.WriteString(entry.Time.Format(tsFormat))
	line.WriteString("    ")
	line.WriteString(f.Name)
	line.WriteString("    ")
	line.WriteString(levelName(entry.Level))
	line.WriteString("    ")
	line.WriteString(entry.Message)

	if len(entry.Data) > 0 {
		keys := make([]string, 0, len(entry.Data))
		for k := range entry.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&line, " %s=%v", k, entry.Data[k])
		}
	}

	if entry.HasCaller() {
		fmt.Fprintf(&line, " (%s:%d)", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}

	text := line.String()
	if !f.DisableColour {
		if c, ok := levelColours[entry.Level]; ok {
			c.EnableColor()
			text = c.Sprint(text)
		}
	}

	var b bytes.Buffer
	b.WriteString(text)
	b.WriteByte('\n')
	return b.Bytes(), nil
}
