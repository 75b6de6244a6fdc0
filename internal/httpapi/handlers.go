package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/DoyleJ11/hero-assign-backend/internal/engine"
	"github.com/DoyleJ11/hero-assign-backend/pkg/types"
)

// User-facing messages, in the language of the registration front-end.
const (
	MsgNameRequired  = "Имя обязательно!"
	MsgPoolExhausted = "Все герои уже распределены! Обратитесь к организаторам."
	MsgResetDone     = "Все назначения сброшены"
	MsgBadRequest    = "Некорректный запрос"
	MsgInternal      = "Ошибка сервера"
)

const maxBodyBytes = 4 << 10

type AssignmentStore interface {
	Allocate(ctx context.Context, name string) (engine.Allocation, error)
	Status(ctx context.Context) (engine.Status, error)
	Reset(ctx context.Context) ([]string, error)
}

func Register(s AssignmentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.RegisterRequest
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, MsgBadRequest)
			return
		}

		a, err := s.Allocate(r.Context(), req.Name)
		if err != nil {
			handleStoreError(w, r, log, err)
			return
		}

		writeJSON(w, http.StatusOK, types.RegisterResponse{
			Hero:            a.Hero,
			AlreadyAssigned: a.AlreadyAssigned,
			Name:            a.Name,
		})
	}
}

func Status(s AssignmentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.Status(r.Context())
		if err != nil {
			handleStoreError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, StatusResponse(st))
	}
}

func Reset(s AssignmentStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := s.Reset(r.Context())
		if err != nil {
			handleStoreError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ResetResponse{Message: MsgResetDone, NewOrder: order})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// StatusResponse converts a store status into its wire form.
func StatusResponse(st engine.Status) types.StatusResponse {
	assignments := st.Assignments
	if assignments == nil {
		assignments = map[string]string{}
	}
	return types.StatusResponse{
		Total:       st.Total,
		Assigned:    st.Assigned,
		Remaining:   st.Remaining,
		Assignments: assignments,
	}
}

func handleStoreError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidName):
		writeError(w, http.StatusBadRequest, MsgNameRequired)
	case errors.Is(err, engine.ErrPoolExhausted):
		writeError(w, http.StatusBadRequest, MsgPoolExhausted)
	default:
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgInternal)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, types.ErrorResponse{Detail: detail})
}
