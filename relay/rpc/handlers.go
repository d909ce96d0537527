package rpc

import (
	"net/http"

	"github.com/gorilla/mux"
	jsoniter "github.com/json-iterator/go"
	"github.com/openlifting/liftcast/relay/projection"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type queryResponse struct {
	Success bool `json:"success"`
	*projection.Result
}

type waitingResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func (s *Service) handleProjection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, fop := vars["name"], vars["fop"]

	locale := ""
	opts := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) == 0 {
			continue
		}
		if key == "locale" {
			locale = values[0]
			continue
		}
		opts[key] = values[0]
	}

	res, err := s.cfg.Projections.Query(r.Context(), name, fop, opts, locale)
	switch {
	case err == nil:
	case errors.Is(err, projection.ErrNotReady):
		writeJSON(w, http.StatusOK, &waitingResponse{
			Status:  "waiting",
			Message: "Waiting for competition data...",
		})
		return
	case errors.Is(err, projection.ErrUnknownProjection):
		writeJSON(w, http.StatusNotFound, &errorResponse{Error: "unknown_projection"})
		return
	case errors.Is(err, projection.ErrOptionInvalid):
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "invalid_options", Reason: err.Error()})
		return
	default:
		log.WithError(err).WithField("projection", name).Error("Projection query failed")
		writeJSON(w, http.StatusInternalServerError, &errorResponse{Reason: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, &queryResponse{Success: true, Result: res})
}

type actionRequest struct {
	Action string `json:"action"`
}

type scoreboardDescriptor struct {
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Options     projection.Schema `json:"options,omitempty"`
}

type sessionState struct {
	SessionName string `json:"groupName,omitempty"`
	SessionInfo string `json:"groupInfo,omitempty"`
	FOPState    string `json:"fopState,omitempty"`
	BreakType   string `json:"breakType,omitempty"`
	Lifecycle   string `json:"lifecycle"`
}

func (s *Service) handleAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "malformed_request", Reason: err.Error()})
		return
	}
	switch req.Action {
	case "list_scoreboards":
		list := s.cfg.Projections.List()
		boards := make([]scoreboardDescriptor, 0, len(list))
		for _, p := range list {
			boards = append(boards, scoreboardDescriptor{
				Name:        p.Name,
				Description: p.Description,
				Options:     p.Schema,
			})
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"scoreboards": boards,
		})
	case "list_fops":
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"fops":    s.cfg.Reader.ListFOPs(),
		})
	case "get_state":
		sessions := make(map[string]*sessionState)
		for _, fop := range s.cfg.Reader.ListFOPs() {
			state := &sessionState{Lifecycle: s.cfg.Reader.Lifecycle(fop).String()}
			if snap := s.cfg.Reader.Snapshot(fop); snap != nil {
				state.SessionName = snap.SessionName
				state.SessionInfo = snap.SessionInfo
				state.FOPState = snap.FOPState
				state.BreakType = snap.BreakType
			}
			sessions[fop] = state
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"ready":    s.cfg.Reader.IsReady(),
			"missing":  s.cfg.Reader.MissingPreconditions(),
			"locales":  s.cfg.Reader.Locales(),
			"sessions": sessions,
		})
	default:
		writeJSON(w, http.StatusBadRequest, &errorResponse{Error: "unknown_action", Reason: req.Action})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Could not encode response")
	}
}
