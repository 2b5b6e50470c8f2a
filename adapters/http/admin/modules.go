package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/revmura/revmura-suite/app"
	"github.com/revmura/revmura-suite/core/events"
	"github.com/revmura/revmura-suite/domain/module"
	"github.com/revmura/revmura-suite/pkg/httpjson"
)

// ModulesResponse lists every registered module.
type ModulesResponse struct {
	Modules []app.ModuleStatus `json:"modules"`
	Booted  bool               `json:"booted"`
}

// FaultResponse is one isolated callback failure.
type FaultResponse struct {
	Module   string `json:"module"`
	Callback string `json:"callback"`
	Error    string `json:"error"`
}

// EnabledRequest replaces the enabled set.
type EnabledRequest struct {
	Enabled *[]string `json:"enabled"`
}

// EnabledResponse reports the outcome of an enabled set update.
type EnabledResponse struct {
	Enabled     []string        `json:"enabled"`
	EnabledNow  []string        `json:"enabled_now"`
	DisabledNow []string        `json:"disabled_now"`
	Faults      []FaultResponse `json:"faults"`
}

// DeleteDataResponse reports the outcome of a data deletion.
type DeleteDataResponse struct {
	Deleted       string          `json:"deleted"`
	Registered    bool            `json:"registered"`
	LedgerCleared bool            `json:"ledger_cleared"`
	Faults        []FaultResponse `json:"faults"`
}

// ListModules returns the status of every registered module.
//
//	@Summary		List modules
//	@Description	Registry order, with enabled flag, lifecycle state and failed gate axes
//	@Tags			Admin - Modules
//	@Produce		json
//	@Success		200	{object}	ModulesResponse
//	@Security		AdminAuth
//	@Router			/admin/modules [get]
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.lifecycle.Statuses(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("list modules")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Failed to list modules")
		return
	}
	httpjson.Write(w, http.StatusOK, ModulesResponse{Modules: statuses, Booted: h.lifecycle.Booted()})
}

// SetEnabled replaces the enabled set.
//
//	@Summary		Set enabled modules
//	@Description	Persists the requested set exactly and runs enable/disable callbacks for the difference
//	@Tags			Admin - Modules
//	@Accept			json
//	@Produce		json
//	@Param			request	body		EnabledRequest			true	"Requested enabled set"
//	@Success		200		{object}	EnabledResponse
//	@Failure		400		{object}	httpjson.ErrorResponse
//	@Failure		403		{object}	httpjson.ErrorResponse
//	@Security		AdminAuth
//	@Router			/admin/modules/enabled [put]
func (h *Handler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req EnabledRequest
	if err := httpjson.Decode(r, &req); err != nil {
		httpjson.Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Enabled == nil {
		httpjson.Error(w, http.StatusBadRequest, "missing_enabled", "enabled is required")
		return
	}

	h.mu.Lock()
	report, err := h.lifecycle.Toggle(r.Context(), *req.Enabled)
	h.mu.Unlock()
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	httpjson.Write(w, http.StatusOK, EnabledResponse{
		Enabled:     nonNil(report.Enabled),
		EnabledNow:  nonNil(report.EnabledNow),
		DisabledNow: nonNil(report.DisabledNow),
		Faults:      faultResponses(report.Faults),
	})
}

// DeleteModuleData runs a disabled module's uninstall callback.
//
//	@Summary		Delete module data
//	@Description	Deletes all data owned by a disabled module and forgets its installed version
//	@Tags			Admin - Modules
//	@Produce		json
//	@Param			id	path		string	true	"Module ID"
//	@Success		200	{object}	DeleteDataResponse
//	@Failure		400	{object}	httpjson.ErrorResponse
//	@Failure		409	{object}	httpjson.ErrorResponse	"Module is enabled"
//	@Security		AdminAuth
//	@Router			/admin/modules/{id}/data [delete]
func (h *Handler) DeleteModuleData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.Lock()
	report, err := h.lifecycle.Uninstall(r.Context(), id)
	h.mu.Unlock()
	if err != nil {
		h.writeLifecycleError(w, err)
		return
	}

	var faults []module.Fault
	if report.Fault != nil {
		faults = append(faults, *report.Fault)
	}
	httpjson.Write(w, http.StatusOK, DeleteDataResponse{
		Deleted:       report.Module,
		Registered:    report.Registered,
		LedgerCleared: report.LedgerCleared,
		Faults:        faultResponses(faults),
	})
}

// NoticesResponse lists operator notices.
type NoticesResponse struct {
	Notices []events.Notice `json:"notices"`
}

// ListNotices returns recent gate failures and callback faults.
//
//	@Summary		List notices
//	@Tags			Admin - Modules
//	@Produce		json
//	@Success		200	{object}	NoticesResponse
//	@Security		AdminAuth
//	@Router			/admin/notices [get]
func (h *Handler) ListNotices(w http.ResponseWriter, r *http.Request) {
	notices := []events.Notice{}
	if h.notices != nil {
		notices = h.notices.List()
	}
	httpjson.Write(w, http.StatusOK, NoticesResponse{Notices: notices})
}

// ClearNotices dismisses every notice.
//
//	@Summary		Clear notices
//	@Tags			Admin - Modules
//	@Success		204
//	@Security		AdminAuth
//	@Router			/admin/notices [delete]
func (h *Handler) ClearNotices(w http.ResponseWriter, r *http.Request) {
	if !requireOperator(w, r) {
		return
	}
	if h.notices != nil {
		h.notices.Clear()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, module.ErrUnauthorized):
		httpjson.Error(w, http.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, module.ErrInvalidID):
		httpjson.Error(w, http.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, module.ErrModuleEnabled):
		httpjson.Error(w, http.StatusConflict, "module_enabled", err.Error())
	case errors.Is(err, module.ErrPrecondition):
		httpjson.Error(w, http.StatusConflict, "precondition_failed", err.Error())
	default:
		h.logger.Error().Err(err).Msg("module operation failed")
		httpjson.Error(w, http.StatusInternalServerError, "internal_error", "Module operation failed")
	}
}

func faultResponses(faults []module.Fault) []FaultResponse {
	out := make([]FaultResponse, 0, len(faults))
	for _, f := range faults {
		out = append(out, FaultResponse{Module: f.Module, Callback: string(f.Callback), Error: f.Err.Error()})
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
