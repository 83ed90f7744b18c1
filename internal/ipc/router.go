package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cageclock/internal/services"
)

// Handler serves every bus message.
type Handler interface {
	FetchVideos(ctx context.Context, req FetchVideos) (VideosResponse, error)
	FetchMoreVideos(ctx context.Context, req FetchMoreVideos) (VideosResponse, error)
	FetchVideosForTopic(ctx context.Context, req FetchVideosForTopic) (VideosResponse, error)
	SetAPIKey(ctx context.Context, req SetAPIKey) (Empty, error)
	GetAPIKey(ctx context.Context, req GetAPIKey) (APIKeyPresence, error)
	VerifyAPIKey(ctx context.Context, req VerifyAPIKey) (VerifyResult, error)
	ClearCache(ctx context.Context, req ClearCache) (Empty, error)
	StartBreak(ctx context.Context, req StartBreak) (BreakStarted, error)
	EndBreak(ctx context.Context, req EndBreak) (Empty, error)
	GetBreakStatus(ctx context.Context, req GetBreakStatus) (BreakStatus, error)
	AddAPIKey(ctx context.Context, req AddAPIKey) (AddedKey, error)
	ListAPIKeys(ctx context.Context, req ListAPIKeys) (KeyList, error)
	SetActiveAPIKey(ctx context.Context, req SetActiveAPIKey) (Empty, error)
	DeleteAPIKey(ctx context.Context, req DeleteAPIKey) (Empty, error)
	ReverifyAPIKey(ctx context.Context, req ReverifyAPIKey) (VerifyResult, error)
	SetFocus(ctx context.Context, req SetFocus) (StateResponse, error)
	SetTopic(ctx context.Context, req SetTopic) (StateResponse, error)
	AddTopic(ctx context.Context, req AddTopic) (StateResponse, error)
	RemoveTopic(ctx context.Context, req RemoveTopic) (StateResponse, error)
	GetState(ctx context.Context, req GetState) (StateResponse, error)
	CheckURL(ctx context.Context, req CheckURL) (URLDecision, error)
	RecordWatch(ctx context.Context, req RecordWatch) (Empty, error)
}

// ErrUnknownMessage is returned for message types outside the closed set.
var ErrUnknownMessage = errors.New("unknown message type")

// Route dispatches req to the matching handler method.
func Route(ctx context.Context, h Handler, req Request) (any, error) {
	switch r := req.(type) {
	case FetchVideos:
		return h.FetchVideos(ctx, r)
	case FetchMoreVideos:
		return h.FetchMoreVideos(ctx, r)
	case FetchVideosForTopic:
		return h.FetchVideosForTopic(ctx, r)
	case SetAPIKey:
		return h.SetAPIKey(ctx, r)
	case GetAPIKey:
		return h.GetAPIKey(ctx, r)
	case VerifyAPIKey:
		return h.VerifyAPIKey(ctx, r)
	case ClearCache:
		return h.ClearCache(ctx, r)
	case StartBreak:
		return h.StartBreak(ctx, r)
	case EndBreak:
		return h.EndBreak(ctx, r)
	case GetBreakStatus:
		return h.GetBreakStatus(ctx, r)
	case AddAPIKey:
		return h.AddAPIKey(ctx, r)
	case ListAPIKeys:
		return h.ListAPIKeys(ctx, r)
	case SetActiveAPIKey:
		return h.SetActiveAPIKey(ctx, r)
	case DeleteAPIKey:
		return h.DeleteAPIKey(ctx, r)
	case ReverifyAPIKey:
		return h.ReverifyAPIKey(ctx, r)
	case SetFocus:
		return h.SetFocus(ctx, r)
	case SetTopic:
		return h.SetTopic(ctx, r)
	case AddTopic:
		return h.AddTopic(ctx, r)
	case RemoveTopic:
		return h.RemoveTopic(ctx, r)
	case GetState:
		return h.GetState(ctx, r)
	case CheckURL:
		return h.CheckURL(ctx, r)
	case RecordWatch:
		return h.RecordWatch(ctx, r)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMessage, req)
	}
}

// NewEnvelope encodes req for the wire.
func NewEnvelope(req Request, requestID string) (Envelope, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", req.Type(), err)
	}
	return Envelope{Type: req.Type(), Payload: payload, RequestID: requestID}, nil
}

// DecodeRequest turns an envelope back into its typed variant.
func DecodeRequest(env Envelope) (Request, error) {
	switch env.Type {
	case MsgFetchVideos:
		return decode[FetchVideos](env)
	case MsgFetchMoreVideos:
		return decode[FetchMoreVideos](env)
	case MsgFetchVideosForTopic:
		return decode[FetchVideosForTopic](env)
	case MsgSetAPIKey:
		return decode[SetAPIKey](env)
	case MsgGetAPIKey:
		return decode[GetAPIKey](env)
	case MsgVerifyAPIKey:
		return decode[VerifyAPIKey](env)
	case MsgClearCache:
		return decode[ClearCache](env)
	case MsgStartBreak:
		return decode[StartBreak](env)
	case MsgEndBreak:
		return decode[EndBreak](env)
	case MsgGetBreakStatus:
		return decode[GetBreakStatus](env)
	case MsgAddAPIKey:
		return decode[AddAPIKey](env)
	case MsgListAPIKeys:
		return decode[ListAPIKeys](env)
	case MsgSetActiveAPIKey:
		return decode[SetActiveAPIKey](env)
	case MsgDeleteAPIKey:
		return decode[DeleteAPIKey](env)
	case MsgReverifyAPIKey:
		return decode[ReverifyAPIKey](env)
	case MsgSetFocus:
		return decode[SetFocus](env)
	case MsgSetTopic:
		return decode[SetTopic](env)
	case MsgAddTopic:
		return decode[AddTopic](env)
	case MsgRemoveTopic:
		return decode[RemoveTopic](env)
	case MsgGetState:
		return decode[GetState](env)
	case MsgCheckURL:
		return decode[CheckURL](env)
	case MsgRecordWatch:
		return decode[RecordWatch](env)
	default:
		return nil, services.Validationf("Unknown message type %q", env.Type)
	}
}

func decode[T Request](env Envelope) (Request, error) {
	var req T
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, &req); err != nil {
			return nil, services.Validationf("Malformed %s payload: %v", env.Type, err)
		}
	}
	return req, nil
}

// NewErrorPayload converts err into the wire error shape. Structured errors
// keep their message as produced; the user-facing advice travels separately
// in Hint. Unclassified errors are reported as upstream failures with a
// generic message.
func NewErrorPayload(err error) *ErrorPayload {
	if err == nil {
		return nil
	}
	advice := services.UserMessage(err)
	payload := &ErrorPayload{
		Kind:    string(services.KindOf(err)),
		Message: advice,
	}
	if e, ok := services.As(err); ok {
		if e.Message != "" {
			payload.Message = e.Message
		}
		payload.Code = e.Code
		payload.IsQuotaError = e.IsQuotaError()
		payload.IsAuthError = e.IsAuthError()
		payload.IsNetworkError = e.IsNetworkError()
	}
	if advice != payload.Message {
		payload.Hint = advice
	}
	return payload
}

// Err converts the payload back into a classified error.
func (p *ErrorPayload) Err() error {
	if p == nil {
		return nil
	}
	return services.New(services.ErrorKind(p.Kind), p.Code, p.Message)
}
