package ipc

import (
	"encoding/json"
	"time"

	"cageclock/internal/focus"
	"cageclock/internal/redirect"
	"cageclock/internal/stats"
	"cageclock/internal/youtube"
)

// MessageType names a bus message.
type MessageType string

const (
	MsgFetchVideos         MessageType = "FETCH_VIDEOS"
	MsgFetchMoreVideos     MessageType = "FETCH_MORE_VIDEOS"
	MsgFetchVideosForTopic MessageType = "FETCH_VIDEOS_FOR_TOPIC"
	MsgSetAPIKey           MessageType = "SET_API_KEY"
	MsgGetAPIKey           MessageType = "GET_API_KEY"
	MsgVerifyAPIKey        MessageType = "VERIFY_API_KEY"
	MsgClearCache          MessageType = "CLEAR_CACHE"
	MsgStartBreak          MessageType = "START_BREAK"
	MsgEndBreak            MessageType = "END_BREAK"
	MsgGetBreakStatus      MessageType = "GET_BREAK_STATUS"

	MsgAddAPIKey       MessageType = "ADD_API_KEY"
	MsgListAPIKeys     MessageType = "LIST_API_KEYS"
	MsgSetActiveAPIKey MessageType = "SET_ACTIVE_API_KEY"
	MsgDeleteAPIKey    MessageType = "DELETE_API_KEY"
	MsgReverifyAPIKey  MessageType = "REVERIFY_API_KEY"
	MsgSetFocus        MessageType = "SET_FOCUS"
	MsgSetTopic        MessageType = "SET_TOPIC"
	MsgAddTopic        MessageType = "ADD_TOPIC"
	MsgRemoveTopic     MessageType = "REMOVE_TOPIC"
	MsgGetState        MessageType = "GET_STATE"
	MsgCheckURL        MessageType = "CHECK_URL"
	MsgRecordWatch     MessageType = "RECORD_WATCH"
)

// Request is a bus message. The set of implementations is closed.
type Request interface {
	Type() MessageType
	sealed()
}

type (
	FetchVideos struct {
		ForceFresh bool `json:"forceFresh"`
	}
	FetchMoreVideos struct {
		PageToken string `json:"pageToken"`
	}
	FetchVideosForTopic struct {
		Topic      string `json:"topic"`
		MaxResults int    `json:"maxResults,omitempty"`
		PageToken  string `json:"pageToken,omitempty"`
	}
	SetAPIKey struct {
		APIKey string `json:"apiKey"`
	}
	GetAPIKey    struct{}
	VerifyAPIKey struct {
		APIKey string `json:"apiKey"`
	}
	ClearCache     struct{}
	StartBreak     struct{}
	EndBreak       struct{}
	GetBreakStatus struct{}

	AddAPIKey struct {
		APIKey string `json:"apiKey"`
		Name   string `json:"name,omitempty"`
	}
	ListAPIKeys     struct{}
	SetActiveAPIKey struct {
		ID string `json:"id"`
	}
	DeleteAPIKey struct {
		ID string `json:"id"`
	}
	ReverifyAPIKey struct {
		ID string `json:"id"`
	}
	SetFocus struct {
		Enabled bool `json:"enabled"`
	}
	SetTopic struct {
		Topic string `json:"topic"`
	}
	AddTopic struct {
		Topic string `json:"topic"`
	}
	RemoveTopic struct {
		Topic string `json:"topic"`
	}
	GetState struct{}
	CheckURL struct {
		Path string `json:"path"`
	}
	RecordWatch struct{}
)

func (FetchVideos) Type() MessageType         { return MsgFetchVideos }
func (FetchMoreVideos) Type() MessageType     { return MsgFetchMoreVideos }
func (FetchVideosForTopic) Type() MessageType { return MsgFetchVideosForTopic }
func (SetAPIKey) Type() MessageType           { return MsgSetAPIKey }
func (GetAPIKey) Type() MessageType           { return MsgGetAPIKey }
func (VerifyAPIKey) Type() MessageType        { return MsgVerifyAPIKey }
func (ClearCache) Type() MessageType          { return MsgClearCache }
func (StartBreak) Type() MessageType          { return MsgStartBreak }
func (EndBreak) Type() MessageType            { return MsgEndBreak }
func (GetBreakStatus) Type() MessageType      { return MsgGetBreakStatus }
func (AddAPIKey) Type() MessageType           { return MsgAddAPIKey }
func (ListAPIKeys) Type() MessageType         { return MsgListAPIKeys }
func (SetActiveAPIKey) Type() MessageType     { return MsgSetActiveAPIKey }
func (DeleteAPIKey) Type() MessageType        { return MsgDeleteAPIKey }
func (ReverifyAPIKey) Type() MessageType      { return MsgReverifyAPIKey }
func (SetFocus) Type() MessageType            { return MsgSetFocus }
func (SetTopic) Type() MessageType            { return MsgSetTopic }
func (AddTopic) Type() MessageType            { return MsgAddTopic }
func (RemoveTopic) Type() MessageType         { return MsgRemoveTopic }
func (GetState) Type() MessageType            { return MsgGetState }
func (CheckURL) Type() MessageType            { return MsgCheckURL }
func (RecordWatch) Type() MessageType         { return MsgRecordWatch }

func (FetchVideos) sealed()         {}
func (FetchMoreVideos) sealed()     {}
func (FetchVideosForTopic) sealed() {}
func (SetAPIKey) sealed()           {}
func (GetAPIKey) sealed()           {}
func (VerifyAPIKey) sealed()        {}
func (ClearCache) sealed()          {}
func (StartBreak) sealed()          {}
func (EndBreak) sealed()            {}
func (GetBreakStatus) sealed()      {}
func (AddAPIKey) sealed()           {}
func (ListAPIKeys) sealed()         {}
func (SetActiveAPIKey) sealed()     {}
func (DeleteAPIKey) sealed()        {}
func (ReverifyAPIKey) sealed()      {}
func (SetFocus) sealed()            {}
func (SetTopic) sealed()            {}
func (AddTopic) sealed()            {}
func (RemoveTopic) sealed()         {}
func (GetState) sealed()            {}
func (CheckURL) sealed()            {}
func (RecordWatch) sealed()         {}

// Envelope is the wire form of a Request.
type Envelope struct {
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// Reply is the wire form of a handler result. Payload holds the typed
// response for the message when Success is true.
type Reply struct {
	Type      MessageType     `json:"type"`
	Success   bool            `json:"success"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// ErrorPayload is the structured failure returned to clients.
type ErrorPayload struct {
	Code           int    `json:"code"`
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	IsQuotaError   bool   `json:"isQuotaError"`
	IsAuthError    bool   `json:"isAuthError"`
	IsNetworkError bool   `json:"isNetworkError"`
	Hint           string `json:"hint,omitempty"`
}

// VideosResponse answers the three fetch messages.
type VideosResponse struct {
	Topic         string          `json:"topic"`
	Videos        []youtube.Video `json:"videos"`
	NextPageToken string          `json:"nextPageToken,omitempty"`
	FromCache     bool            `json:"fromCache"`
}

// Empty is the payload of messages that only report success.
type Empty struct{}

// APIKeyPresence answers GET_API_KEY.
type APIKeyPresence struct {
	HasAPIKey bool `json:"hasApiKey"`
}

// VerifyResult answers VERIFY_API_KEY and REVERIFY_API_KEY.
type VerifyResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// BreakStarted answers START_BREAK.
type BreakStarted struct {
	EndTime time.Time `json:"endTime"`
}

// BreakStatus answers GET_BREAK_STATUS.
type BreakStatus = focus.BreakStatus

// KeyView is a stored key with its secret masked.
type KeyView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Masked       string    `json:"key"`
	IsValid      bool      `json:"isValid"`
	LastVerified time.Time `json:"lastVerified"`
	Status       string    `json:"status"`
	Active       bool      `json:"active"`
}

// KeyList answers LIST_API_KEYS.
type KeyList struct {
	Keys        []KeyView `json:"keys"`
	ActiveKeyID string    `json:"activeKeyId,omitempty"`
}

// AddedKey answers ADD_API_KEY.
type AddedKey struct {
	Key KeyView `json:"key"`
}

// StateResponse answers SET_FOCUS, GET_STATE and the topic messages.
type StateResponse struct {
	State  focus.Status `json:"state"`
	Topics []string     `json:"topics"`
	Stats  *stats.Daily `json:"stats,omitempty"`
}

// URLDecision answers CHECK_URL.
type URLDecision = redirect.Decision

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool         `json:"running"`
	PID          int          `json:"pid"`
	StartedAt    time.Time    `json:"started_at"`
	DatabasePath string       `json:"database_path"`
	LockPath     string       `json:"lock_path"`
	Focus        focus.Status `json:"focus"`
	FocusError   string       `json:"focus_error,omitempty"`
}

// StopRequest asks the daemon process to exit.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// TestNotificationRequest triggers a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification dispatch result.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
