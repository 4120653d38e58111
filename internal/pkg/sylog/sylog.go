// Package sylog implements the leveled logger used by every e4s-cl
// component. It writes to stderr, optionally colored, and its level can be
// propagated to re-exec'd subprocesses (the __execute worker) via an
// environment variable rather than a flag, since the worker's argument
// grammar is fixed by the launcher that spawns it.
package sylog

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

type messageLevel int

const (
	FatalLevel messageLevel = iota - 4
	ErrorLevel
	WarnLevel
	LogLevel
	InfoLevel
	VerboseLevel
	DebugLevel
)

func (l messageLevel) String() string {
	switch l {
	case FatalLevel:
		return "FATAL"
	case ErrorLevel:
		return "ERROR"
	case WarnLevel:
		return "WARNING"
	case LogLevel:
		return "LOG"
	case InfoLevel:
		return "INFO"
	case VerboseLevel:
		return "VERBOSE"
	case DebugLevel:
		return "DEBUG"
	default:
		return "?"
	}
}

var messageColors = map[messageLevel]*color.Color{
	FatalLevel: color.New(color.FgRed, color.Bold),
	ErrorLevel: color.New(color.FgRed),
	WarnLevel:  color.New(color.FgYellow),
	InfoLevel:  color.New(color.FgBlue),
}

var (
	loggerLevel = InfoLevel
	logWriter   = io.Writer(os.Stderr)
	rankPrefix  string
)

func init() {
	if l, err := strconv.Atoi(os.Getenv("E4S_CL_MESSAGELEVEL")); err == nil {
		loggerLevel = messageLevel(l)
	}
	color.NoColor = color.NoColor || os.Getenv("E4S_CL_NOCOLOR") != ""
}

// SetRankPrefix tags every subsequent message with an MPI rank, unless
// disabled via the disable_ranked_log config key.
func SetRankPrefix(rank string) {
	rankPrefix = rank
}

func prefix(msgLevel messageLevel) string {
	tag := fmt.Sprintf("%-8s", msgLevel.String()+":")
	if c, ok := messageColors[msgLevel]; ok {
		tag = c.Sprintf("%-8s", msgLevel.String()+":")
	}
	if rankPrefix != "" {
		return fmt.Sprintf("[rank %s] %s ", rankPrefix, tag)
	}
	return tag + " "
}

func writef(msgLevel messageLevel, format string, a ...interface{}) {
	if loggerLevel < msgLevel {
		return
	}
	message := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	fmt.Fprintf(logWriter, "%s%s\n", prefix(msgLevel), message)
}

// Fatalf logs a FATAL-level message then exits with status 255. Reserved
// for the CLI entry point; library code should return errors instead.
func Fatalf(format string, a ...interface{}) {
	writef(FatalLevel, format, a...)
	os.Exit(255)
}

func Errorf(format string, a ...interface{})   { writef(ErrorLevel, format, a...) }
func Warningf(format string, a ...interface{}) { writef(WarnLevel, format, a...) }
func Infof(format string, a ...interface{})    { writef(InfoLevel, format, a...) }
func Verbosef(format string, a ...interface{}) { writef(VerboseLevel, format, a...) }
func Debugf(format string, a ...interface{})   { writef(DebugLevel, format, a...) }

// SetLevel sets the logger's verbosity threshold.
func SetLevel(l int) { loggerLevel = messageLevel(l) }

// GetLevel returns the current verbosity threshold.
func GetLevel() int { return int(loggerLevel) }

// GetEnvVar returns an E4S_CL_MESSAGELEVEL=n assignment suitable for
// propagating the current level to a re-exec'd __execute worker.
func GetEnvVar() string {
	return fmt.Sprintf("E4S_CL_MESSAGELEVEL=%d", loggerLevel)
}

// Writer exposes the underlying writer, e.g. to thread into os/exec.Cmd.Stderr
// for a traced or containerized subprocess's own diagnostic chatter.
func Writer() io.Writer {
	if loggerLevel <= LogLevel {
		return io.Discard
	}
	return logWriter
}

// SetWriter swaps the destination writer, returning the previous one so
// tests can capture and restore it.
func SetWriter(w io.Writer) io.Writer {
	old := logWriter
	if w != nil {
		logWriter = w
	}
	return old
}
