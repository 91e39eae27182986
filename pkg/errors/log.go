package errors

import (
	"os"

	"github.com/rs/zerolog"
)

// LogHandler is a Handler that writes errors through a zerolog logger.
type LogHandler struct {
	// Logger receives the log events. Defaults to stderr.
	Logger zerolog.Logger
	// Verbose enables stack trace output for evaluation failures.
	Verbose bool
}

// NewLogHandler creates a LogHandler writing to stderr.
func NewLogHandler() *LogHandler {
	return &LogHandler{
		Logger: zerolog.New(os.Stderr).With().Timestamp().Logger(),
	}
}

// HandleStateShape logs a state shape mismatch.
func (h *LogHandler) HandleStateShape(err *StateShapeError) {
	if err == nil {
		return
	}
	h.Logger.Error().
		Str("kind", KindStateShape.String()).
		Str("identity", err.Identity).
		Str("slot", err.Slot).
		Str("want", err.Want).
		Str("got", err.Got).
		Msg(err.Error())
}

// HandleEvaluation logs an evaluation failure.
func (h *LogHandler) HandleEvaluation(err *EvaluationError) {
	if err == nil {
		return
	}
	ev := h.Logger.Error().
		Str("kind", KindEvaluation.String()).
		Str("identity", err.Identity)
	if h.Verbose && err.StackTrace != "" {
		ev = ev.Str("stack", err.StackTrace)
	}
	ev.Msg(err.Error())
}

// HandleCollision logs an identity collision.
func (h *LogHandler) HandleCollision(err *CollisionError) {
	if err == nil {
		return
	}
	h.Logger.Error().
		Str("kind", KindCollision.String()).
		Str("parent", err.Parent).
		Str("identity", err.Identity).
		Msg(err.Error())
}

// HandleMutation logs a host mutation failure.
func (h *LogHandler) HandleMutation(err *MutationError) {
	if err == nil {
		return
	}
	h.Logger.Warn().
		Str("kind", KindMutation.String()).
		Str("op", err.Op).
		Str("identity", err.Identity).
		Err(err.Err).
		Msg(err.Error())
}
