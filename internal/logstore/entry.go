package logstore

import "time"

// Level is the severity tag of a captured line.
type Level string

// Log levels. The level is derived from the stream that produced the line.
const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Stream identifies which output stream of a process produced a line.
type Stream string

// Output streams.
const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
)

// Level returns the log level for lines read from the stream.
func (s Stream) Level() Level {
	if s == StreamStderr {
		return LevelError
	}
	return LevelInfo
}

// Entry is a single captured line of service output.
type Entry struct {
	ID        uint64    `json:"id"`
	ServiceID int64     `json:"service_id"`
	Level     Level     `json:"level"`
	Stream    Stream    `json:"stream"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
