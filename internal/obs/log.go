package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
	"time"
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
)

// Logger returns the shared line logger used across the service.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stdout, "", 0)
	})
	return logger
}

// RequestLog is one completed HTTP request as the access log records it.
type RequestLog struct {
	RequestID string
	Method    string
	Path      string
	Status    int
	Duration  time.Duration
	UserAgent string
}

// LogRequest emits one JSON line for a completed request.
func LogRequest(entry RequestLog) {
	emit(struct {
		TS         string `json:"ts"`
		Level      string `json:"level"`
		Msg        string `json:"msg"`
		RequestID  string `json:"request_id,omitempty"`
		Method     string `json:"method"`
		Path       string `json:"path"`
		Status     int    `json:"status"`
		DurationMS int64  `json:"duration_ms"`
		UserAgent  string `json:"user_agent,omitempty"`
	}{
		TS:         time.Now().UTC().Format(time.RFC3339Nano),
		Level:      "info",
		Msg:        "request_complete",
		RequestID:  entry.RequestID,
		Method:     entry.Method,
		Path:       entry.Path,
		Status:     entry.Status,
		DurationMS: entry.Duration.Milliseconds(),
		UserAgent:  entry.UserAgent,
	})
}

// LogEvent emits one JSON line for a non-request event (startup, migrations).
func LogEvent(msg string, fields map[string]string) {
	entry := make(map[string]string, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = "info"
	entry["msg"] = msg
	emit(entry)
}

func emit(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
