package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DocumentError   = 3
	PipelineError   = 4
	ReportError     = 5
	PartialSuccess  = 6
)
