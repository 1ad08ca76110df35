package httpapi

import "time"

// Version is stamped at build time via -ldflags.
var Version = "dev"

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Answer         string   `json:"answer"`
	UsedContext    bool     `json:"used_context"`
	Sources        []string `json:"sources,omitempty"`
	ProcessingTime float64  `json:"processing_time"`
	RequestID      string   `json:"request_id"`
	Success        bool     `json:"success"`
}

type healthResponse struct {
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
	UptimeSeconds  int64     `json:"uptime_seconds"`
	IndexedChunks  int       `json:"indexed_chunks"`
	ServiceVersion string    `json:"version"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorBody struct {
	Error   apiError `json:"error"`
	Success bool     `json:"success"`
}

func errorResponse(kind, message string) errorBody {
	return errorBody{Error: apiError{Type: kind, Message: message}, Success: false}
}
