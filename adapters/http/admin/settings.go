package admin

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/revmura/revmura-suite/domain/settings"
	"github.com/revmura/revmura-suite/pkg/httpjson"
)

// SettingResponse represents one stored setting.
type SettingResponse struct {
	Key       string          `json:"key"`
	Owner     string          `json:"owner,omitempty"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

// SettingsResponse lists stored settings.
type SettingsResponse struct {
	Settings []SettingResponse `json:"settings"`
}

func settingResponse(s settings.Setting) SettingResponse {
	resp := SettingResponse{Key: s.Key, Owner: settings.Owner(s.Key), Value: json.RawMessage(s.Value)}
	if !json.Valid(resp.Value) {
		resp.Value, _ = json.Marshal(s.Value)
	}
	if !s.UpdatedAt.IsZero() {
		resp.UpdatedAt = s.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}

// ListSettings returns every persisted setting.
//
//	@Summary		List settings
//	@Description	Raw view of the persisted key/value settings
//	@Tags			Admin - Settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		AdminAuth
//	@Router			/admin/settings [get]
func (h *Handler) ListSettings(w http.ResponseWriter, r *http.Request) {
	list, err := h.settings.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list settings")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to list settings")
		return
	}
	out := make([]SettingResponse, 0, len(list))
	for _, s := range list {
		out = append(out, settingResponse(s))
	}
	httpjson.Write(w, http.StatusOK, SettingsResponse{Settings: out})
}

// GetSetting returns one setting.
//
//	@Summary		Get setting
//	@Tags			Admin - Settings
//	@Produce		json
//	@Param			key	path		string	true	"Setting key"
//	@Success		200	{object}	SettingResponse
//	@Failure		404	{object}	httpjson.ErrorResponse
//	@Security		AdminAuth
//	@Router			/admin/settings/{key} [get]
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	list, err := h.settings.List(r.Context())
	if err != nil {
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to read settings")
		return
	}
	for _, s := range list {
		if s.Key == key {
			httpjson.Write(w, http.StatusOK, settingResponse(s))
			return
		}
	}
	httpjson.Error(w, http.StatusNotFound, "not_found", "Setting not found")
}

// PutSetting replaces one setting with the JSON request body.
//
//	@Summary		Update setting
//	@Description	Stores the request body verbatim; lifecycle keys take effect on the next boot
//	@Tags			Admin - Settings
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string		true	"Setting key"
//	@Param			request	body		interface{}	true	"JSON value"
//	@Success		200		{object}	SettingResponse
//	@Failure		400		{object}	httpjson.ErrorResponse
//	@Security		AdminAuth
//	@Router			/admin/settings/{key} [put]
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	if !requireOperator(w, r) {
		return
	}
	key := chi.URLParam(r, "key")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil || !json.Valid(body) {
		httpjson.Error(w, http.StatusBadRequest, "invalid_json", "Body must be a JSON value")
		return
	}

	h.mu.Lock()
	err = h.settings.Save(r.Context(), key, json.RawMessage(body))
	h.mu.Unlock()
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("save setting")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to save setting")
		return
	}

	h.logger.Info().Str("key", key).Msg("setting updated")
	httpjson.Write(w, http.StatusOK, SettingResponse{Key: key, Owner: settings.Owner(key), Value: body})
}

// DeleteSetting removes one setting.
//
//	@Summary		Delete setting
//	@Tags			Admin - Settings
//	@Param			key	path	string	true	"Setting key"
//	@Success		204
//	@Security		AdminAuth
//	@Router			/admin/settings/{key} [delete]
func (h *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	if !requireOperator(w, r) {
		return
	}
	key := chi.URLParam(r, "key")

	h.mu.Lock()
	err := h.settings.Delete(r.Context(), key)
	h.mu.Unlock()
	if err != nil {
		h.logger.Error().Err(err).Str("key", key).Msg("delete setting")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to delete setting")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
