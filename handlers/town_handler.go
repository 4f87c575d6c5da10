package handlers

import (
	"net/http"

	"github.com/G0V1NDS/city-list/services"
	"github.com/G0V1NDS/city-list/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (h *Handlers) CreateTown(w http.ResponseWriter, r *http.Request) {
	var in services.CreateTownInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, h.log, "CreateTown", err)
		return
	}

	town, err := h.hierarchy.Towns.Create(r.Context(), in)
	if err != nil {
		h.log.Debug("CreateTown: rejected",
			zap.String("name", in.Name), zap.String("district", in.District), zap.Error(err))
		writeError(w, h.log, "CreateTown", err)
		return
	}
	writeSuccess(w, http.StatusCreated, town, store.MsgCreated)
}

func (h *Handlers) ListTowns(w http.ResponseWriter, r *http.Request) {
	rows, err := h.hierarchy.Towns.List(r.Context(), listQuery(r))
	if err != nil {
		writeError(w, h.log, "ListTowns", err)
		return
	}
	writeSuccess(w, http.StatusOK, rows, store.MsgSuccessful)
}

func (h *Handlers) GetTown(w http.ResponseWriter, r *http.Request) {
	town, err := h.hierarchy.Towns.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, "GetTown", err)
		return
	}
	writeSuccess(w, http.StatusOK, town, store.MsgSuccessful)
}

func (h *Handlers) RemoveTown(w http.ResponseWriter, r *http.Request) {
	if err := h.hierarchy.Towns.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, "RemoveTown", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, store.MsgDeleted)
}
