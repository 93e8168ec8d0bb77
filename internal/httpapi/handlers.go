package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mirakyux/micept/internal/commands"
	"github.com/mirakyux/micept/internal/lcu"
	"github.com/mirakyux/micept/pkg/types"
)

const maxBodyBytes = 4 << 10

type enabledBody struct {
	Enabled *bool `json:"enabled"`
}

type positionBody struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type visibleBody struct {
	Visible *bool `json:"visible"`
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func GetState(svc *commands.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.AppState())
	}
}

// SetSetting handles PUT {"enabled": bool} for one toggle.
func SetSetting(set func(bool) types.Ack) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body enabledBody
		if !decode(w, r, &body) {
			return
		}
		if body.Enabled == nil {
			writeError(w, http.StatusBadRequest, "missing enabled")
			return
		}
		writeJSON(w, http.StatusOK, set(*body.Enabled))
	}
}

func GetWindowPosition(svc *commands.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.WindowPosition())
	}
}

func SaveWindowPosition(svc *commands.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body positionBody
		if !decode(w, r, &body) {
			return
		}
		if body.X == nil || body.Y == nil {
			writeError(w, http.StatusBadRequest, "missing x or y")
			return
		}
		writeJSON(w, http.StatusOK, svc.SaveWindowPosition(*body.X, *body.Y))
	}
}

func SaveWindowVisible(svc *commands.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body visibleBody
		if !decode(w, r, &body) {
			return
		}
		if body.Visible == nil {
			writeError(w, http.StatusBadRequest, "missing visible")
			return
		}
		writeJSON(w, http.StatusOK, svc.SaveWindowVisible(*body.Visible))
	}
}

func Quit(svc *commands.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusAccepted, svc.Quit())
	}
}

func LCUAuth(svc *commands.Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth, err := svc.DiscoverCredentials(r.Context())
		switch {
		case errors.Is(err, lcu.ErrClientNotFound):
			writeError(w, http.StatusNotFound, "league client not found")
		case err != nil:
			logger.Warn("discovery diagnostic failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, err.Error())
		default:
			writeJSON(w, http.StatusOK, auth)
		}
	}
}

func Privileges(svc *commands.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Privileges())
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, types.ErrorResponse{Error: msg})
}
