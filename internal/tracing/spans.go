package tracing

// Span names.
const (
	SpanStart         = "process.start"
	SpanStartDetached = "process.start_detached"
)

// Span attribute keys.
const (
	AttrWinID      = "process.win_id"
	AttrLabel      = "process.label"
	AttrCommand    = "process.command"
	AttrArgs       = "process.args"
	AttrPID        = "process.pid"
	AttrExitCode   = "process.exit_code"
	AttrExitStatus = "process.exit_status"
	AttrErrorCode  = "process.error_code"
	AttrWorkDir    = "process.work_dir"

	AttrErrorMessage = "error.message"
)

// Span event names.
const (
	EventStarted  = "process.started"
	EventError    = "process.error"
	EventFinished = "process.finished"
)
