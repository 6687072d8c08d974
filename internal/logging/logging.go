package logging

import (
	"fmt"
	"log"
	"os"
)

// Logger is a simple leveled logger that writes key/value pairs to the
// console.
type Logger struct {
	*log.Logger
}

// NewLogger creates a new Logger.
func NewLogger() *Logger {
	return &Logger{
		Logger: log.New(os.Stdout, "", log.LstdFlags),
	}
}

// Info logs an informational message.
func (l *Logger) Info(msg string, args ...any) {
	l.Printf("INFO: %s%s", msg, formatArgs(args))
}

// Warn logs a warning message.
func (l *Logger) Warn(msg string, args ...any) {
	l.Printf("WARN: %s%s", msg, formatArgs(args))
}

// Error logs an error message.
func (l *Logger) Error(msg string, args ...any) {
	l.Printf("ERROR: %s%s", msg, formatArgs(args))
}

// Debug logs a debug message.
func (l *Logger) Debug(msg string, args ...any) {
	l.Printf("DEBUG: %s%s", msg, formatArgs(args))
}

// formatArgs renders alternating key/value pairs as " k=v k=v".
func formatArgs(args []any) string {
	if len(args) == 0 {
		return ""
	}
	out := ""
	for i := 0; i+1 < len(args); i += 2 {
		out += fmt.Sprintf(" %v=%v", args[i], args[i+1])
	}
	if len(args)%2 != 0 {
		out += fmt.Sprintf(" %v", args[len(args)-1])
	}
	return out
}
