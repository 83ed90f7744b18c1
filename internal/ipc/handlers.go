package ipc

import (
	"context"
	"strings"
	"time"

	"cageclock/internal/daemon"
	"cageclock/internal/fetch"
	"cageclock/internal/keystore"
	"cageclock/internal/logging"
	"cageclock/internal/services"
	"cageclock/internal/validate"
)

// daemonHandler serves the bus from the daemon's components.
type daemonHandler struct {
	d   *daemon.Daemon
	now func() time.Time
}

// NewHandler returns the Handler backed by d.
func NewHandler(d *daemon.Daemon) Handler {
	return &daemonHandler{d: d, now: time.Now}
}

var _ Handler = (*daemonHandler)(nil)

func videos(page *fetch.Page) VideosResponse {
	return VideosResponse{
		Topic:         page.Topic,
		Videos:        page.Videos,
		NextPageToken: page.NextPageToken,
		FromCache:     page.FromCache,
	}
}

func (h *daemonHandler) FetchVideos(ctx context.Context, req FetchVideos) (VideosResponse, error) {
	page, err := h.d.Fetcher().Fetch(ctx, req.ForceFresh)
	if err != nil {
		return VideosResponse{}, err
	}
	return videos(page), nil
}

func (h *daemonHandler) FetchMoreVideos(ctx context.Context, req FetchMoreVideos) (VideosResponse, error) {
	page, err := h.d.Fetcher().FetchMore(ctx, req.PageToken)
	if err != nil {
		return VideosResponse{}, err
	}
	return videos(page), nil
}

func (h *daemonHandler) FetchVideosForTopic(ctx context.Context, req FetchVideosForTopic) (VideosResponse, error) {
	page, err := h.d.Fetcher().FetchForTopic(ctx, req.Topic, req.MaxResults, req.PageToken)
	if err != nil {
		return VideosResponse{}, err
	}
	return videos(page), nil
}

func (h *daemonHandler) SetAPIKey(ctx context.Context, req SetAPIKey) (Empty, error) {
	if err := validate.APIKey(req.APIKey).Err(); err != nil {
		return Empty{}, err
	}
	return Empty{}, h.d.Keys().SetLegacy(ctx, validate.SanitizeAPIKey(req.APIKey))
}

func (h *daemonHandler) GetAPIKey(ctx context.Context, _ GetAPIKey) (APIKeyPresence, error) {
	has, err := h.d.Keys().HasKey(ctx)
	if err != nil {
		return APIKeyPresence{}, err
	}
	return APIKeyPresence{HasAPIKey: has}, nil
}

func (h *daemonHandler) VerifyAPIKey(ctx context.Context, req VerifyAPIKey) (VerifyResult, error) {
	valid, message := h.d.Fetcher().VerifyKey(ctx, req.APIKey)
	return VerifyResult{Valid: valid, Error: message}, nil
}

func (h *daemonHandler) ClearCache(ctx context.Context, _ ClearCache) (Empty, error) {
	return Empty{}, h.d.Fetcher().ClearCache(ctx)
}

func (h *daemonHandler) StartBreak(ctx context.Context, _ StartBreak) (BreakStarted, error) {
	end, err := h.d.Machine().StartBreak(ctx)
	if err != nil {
		return BreakStarted{}, err
	}
	return BreakStarted{EndTime: end}, nil
}

func (h *daemonHandler) EndBreak(ctx context.Context, _ EndBreak) (Empty, error) {
	return Empty{}, h.d.Machine().EndBreak(ctx)
}

func (h *daemonHandler) GetBreakStatus(ctx context.Context, _ GetBreakStatus) (BreakStatus, error) {
	return h.d.Machine().BreakStatus(ctx)
}

func (h *daemonHandler) view(k keystore.APIKey, activeID string) KeyView {
	return KeyView{
		ID:           k.ID,
		Name:         k.Name,
		Masked:       k.Masked(),
		IsValid:      k.IsValid,
		LastVerified: k.LastVerified,
		Status:       keystore.VerificationStatus(k, h.now()),
		Active:       k.ID == activeID,
	}
}

func (h *daemonHandler) AddAPIKey(ctx context.Context, req AddAPIKey) (AddedKey, error) {
	if err := validate.APIKey(req.APIKey).Err(); err != nil {
		return AddedKey{}, err
	}
	if err := validate.KeyName(req.Name).Err(); err != nil {
		return AddedKey{}, err
	}
	key, err := h.d.Keys().Add(ctx, req.APIKey, req.Name)
	if err != nil {
		return AddedKey{}, err
	}
	logging.WithContext(ctx, h.d.Logger()).Info("api key added",
		logging.String(logging.FieldEventType, "api_key_added"),
		logging.String("key_id", key.ID),
		logging.String("key", key.Masked()),
	)
	return AddedKey{Key: h.view(key, key.ID)}, nil
}

func (h *daemonHandler) ListAPIKeys(ctx context.Context, _ ListAPIKeys) (KeyList, error) {
	keys, active, err := h.d.Keys().List(ctx)
	if err != nil {
		return KeyList{}, err
	}
	list := KeyList{Keys: make([]KeyView, 0, len(keys)), ActiveKeyID: active}
	for _, k := range keys {
		list.Keys = append(list.Keys, h.view(k, active))
	}
	return list, nil
}

func (h *daemonHandler) SetActiveAPIKey(ctx context.Context, req SetActiveAPIKey) (Empty, error) {
	return Empty{}, h.d.Keys().SetActive(ctx, strings.TrimSpace(req.ID))
}

func (h *daemonHandler) DeleteAPIKey(ctx context.Context, req DeleteAPIKey) (Empty, error) {
	return Empty{}, h.d.Keys().Delete(ctx, strings.TrimSpace(req.ID))
}

func (h *daemonHandler) ReverifyAPIKey(ctx context.Context, req ReverifyAPIKey) (VerifyResult, error) {
	key, ok, err := h.d.Keys().Get(ctx, strings.TrimSpace(req.ID))
	if err != nil {
		return VerifyResult{}, err
	}
	if !ok {
		return VerifyResult{}, services.Validationf("API key %q not found", req.ID)
	}
	valid, message := h.d.Fetcher().VerifyKey(ctx, key.Key)
	if err := h.d.Keys().MarkValidity(ctx, key.ID, valid); err != nil {
		return VerifyResult{}, err
	}
	if !valid {
		if err := h.d.Notifier().NotifyKeyRejected(ctx, key.Name, message); err != nil {
			logging.WarnWithContext(logging.WithContext(ctx, h.d.Logger()), "notification failed", "notification_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "key rejection not pushed"),
			)
		}
	}
	return VerifyResult{Valid: valid, Error: message}, nil
}

func (h *daemonHandler) state(ctx context.Context, withStats bool) (StateResponse, error) {
	status, err := h.d.Machine().Status(ctx)
	if err != nil {
		return StateResponse{}, err
	}
	topics, _, err := h.d.Machine().Topics(ctx)
	if err != nil {
		return StateResponse{}, err
	}
	resp := StateResponse{State: status, Topics: topics}
	if withStats {
		daily, err := h.d.Stats().Today(ctx)
		if err != nil {
			return StateResponse{}, err
		}
		resp.Stats = &daily
	}
	return resp, nil
}

func (h *daemonHandler) SetFocus(ctx context.Context, req SetFocus) (StateResponse, error) {
	if err := h.d.Machine().SetEnabled(ctx, req.Enabled); err != nil {
		return StateResponse{}, err
	}
	return h.state(ctx, false)
}

func (h *daemonHandler) SetTopic(ctx context.Context, req SetTopic) (StateResponse, error) {
	if _, err := h.d.Machine().SetTopic(ctx, req.Topic); err != nil {
		return StateResponse{}, err
	}
	return h.state(ctx, false)
}

func (h *daemonHandler) AddTopic(ctx context.Context, req AddTopic) (StateResponse, error) {
	if _, err := h.d.Machine().AddTopic(ctx, req.Topic); err != nil {
		return StateResponse{}, err
	}
	return h.state(ctx, false)
}

func (h *daemonHandler) RemoveTopic(ctx context.Context, req RemoveTopic) (StateResponse, error) {
	if err := h.d.Machine().RemoveTopic(ctx, req.Topic); err != nil {
		return StateResponse{}, err
	}
	return h.state(ctx, false)
}

func (h *daemonHandler) GetState(ctx context.Context, _ GetState) (StateResponse, error) {
	return h.state(ctx, true)
}

func (h *daemonHandler) CheckURL(ctx context.Context, req CheckURL) (URLDecision, error) {
	if strings.TrimSpace(req.Path) == "" {
		return URLDecision{}, services.Validation("Path is required")
	}
	status, err := h.d.Machine().Status(ctx)
	if err != nil {
		return URLDecision{}, err
	}
	return h.d.Policy().Check(req.Path, status.Enabled), nil
}

func (h *daemonHandler) RecordWatch(ctx context.Context, _ RecordWatch) (Empty, error) {
	return Empty{}, h.d.Stats().RecordWatch(ctx)
}
