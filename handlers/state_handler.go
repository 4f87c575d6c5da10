package handlers

import (
	"net/http"

	"github.com/G0V1NDS/city-list/services"
	"github.com/G0V1NDS/city-list/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (h *Handlers) CreateState(w http.ResponseWriter, r *http.Request) {
	var in services.CreateStateInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, h.log, "CreateState", err)
		return
	}

	state, err := h.hierarchy.States.Create(r.Context(), in)
	if err != nil {
		h.log.Debug("CreateState: rejected", zap.String("name", in.Name), zap.Error(err))
		writeError(w, h.log, "CreateState", err)
		return
	}
	writeSuccess(w, http.StatusCreated, state, store.MsgCreated)
}

func (h *Handlers) ListStates(w http.ResponseWriter, r *http.Request) {
	rows, err := h.hierarchy.States.List(r.Context(), listQuery(r))
	if err != nil {
		writeError(w, h.log, "ListStates", err)
		return
	}
	writeSuccess(w, http.StatusOK, rows, store.MsgSuccessful)
}

func (h *Handlers) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.hierarchy.States.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, "GetState", err)
		return
	}
	writeSuccess(w, http.StatusOK, state, store.MsgSuccessful)
}

func (h *Handlers) RemoveState(w http.ResponseWriter, r *http.Request) {
	if err := h.hierarchy.States.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, "RemoveState", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, store.MsgDeleted)
}
