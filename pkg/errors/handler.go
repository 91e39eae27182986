package errors

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultHandler is the global error handler.
	// It defaults to a LogHandler writing through zerolog.
	DefaultHandler Handler = NewLogHandler()

	handlerMu sync.RWMutex
)

// SetHandler configures the global error handler.
// Pass nil to restore the default LogHandler.
func SetHandler(h Handler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if h == nil {
		DefaultHandler = NewLogHandler()
	} else {
		DefaultHandler = h
	}
}

// getHandler returns the current error handler.
func getHandler() Handler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return DefaultHandler
}

// ReportStateShape sends a state shape mismatch to the global handler.
func ReportStateShape(err *StateShapeError) {
	if err == nil {
		return
	}
	if h := getHandler(); h != nil {
		h.HandleStateShape(err)
	}
}

// ReportEvaluation sends an evaluation failure to the global handler.
// If err.Timestamp is zero, it is set to the current time.
func ReportEvaluation(err *EvaluationError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	if h := getHandler(); h != nil {
		h.HandleEvaluation(err)
	}
}

// ReportCollision sends an identity collision to the global handler.
func ReportCollision(err *CollisionError) {
	if err == nil {
		return
	}
	if h := getHandler(); h != nil {
		h.HandleCollision(err)
	}
}

// ReportMutation sends a host mutation failure to the global handler.
func ReportMutation(err *MutationError) {
	if err == nil {
		return
	}
	if h := getHandler(); h != nil {
		h.HandleMutation(err)
	}
}

// CaptureStack returns the current call stack as a string.
// It skips the first few frames to exclude the CaptureStack call itself.
func CaptureStack() string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(2, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		sb.WriteString(frame.Function)
		sb.WriteString("\n\t")
		sb.WriteString(frame.File)
		sb.WriteString(":")
		sb.WriteString(strconv.Itoa(frame.Line))
		sb.WriteString("\n")
		if !more {
			break
		}
	}
	return sb.String()
}
