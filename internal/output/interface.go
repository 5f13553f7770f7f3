package output

import "io"

// LoggerInterface defines the user-facing output used by commands.
type LoggerInterface interface {
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	Debug(format string, args ...interface{})
	Success(format string, args ...interface{})

	Print(format string, args ...interface{})
	Println(format string, args ...interface{})
	Bold(format string, args ...interface{})
	Cyan(format string, args ...interface{})
	JSON(v any) error

	SetVerbose(verbose bool)
	SetNoColor(noColor bool)
	SetJSONMode(jsonMode bool)
	IsVerbose() bool
	IsJSONMode() bool

	Writer() io.Writer
	ErrWriter() io.Writer

	PrintRunError(info *RunErrorInfo)
}

var _ LoggerInterface = (*Logger)(nil)
