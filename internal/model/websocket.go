package model

// WebSocket message types
const (
	WSMessageTypeProgress    = "progress"
	WSMessageTypeComplete    = "complete"
	WSMessageTypeError       = "error"
	WSMessageTypeSubscribe   = "subscribe"
	WSMessageTypeUnsubscribe = "unsubscribe"
	WSMessageTypePing        = "ping"
	WSMessageTypePong        = "pong"
)

// WSMessage is the envelope shared by all stream messages.
type WSMessage struct {
	Type  string `json:"type"`
	JobID string `json:"jobId,omitempty"`
}

// WSProgressMessage is a progress update for one job.
type WSProgressMessage struct {
	Type        string    `json:"type"`
	JobID       string    `json:"jobId"`
	Progress    int       `json:"progress"`
	Status      JobStatus `json:"status"`
	CurrentStep string    `json:"currentStep,omitempty"`
	PreviewURL  string    `json:"previewUrl,omitempty"`
}

// WSCompleteMessage signals that a job succeeded.
type WSCompleteMessage struct {
	Type   string            `json:"type"`
	JobID  string            `json:"jobId"`
	Result *GenerationResult `json:"result"`
}

// WSErrorMessage signals that a job failed.
type WSErrorMessage struct {
	Type  string  `json:"type"`
	JobID string  `json:"jobId"`
	Error WSError `json:"error"`
}

// WSError carries the failure details of a job.
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WSSubscribeMessage registers or removes interest in a job's events.
type WSSubscribeMessage struct {
	Type  string `json:"type"`
	JobID string `json:"jobId"`
}
