package handlers

import (
	"net/http"

	"github.com/G0V1NDS/city-list/services"
	"github.com/G0V1NDS/city-list/store"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (h *Handlers) CreateDistrict(w http.ResponseWriter, r *http.Request) {
	var in services.CreateDistrictInput
	if err := decodeBody(w, r, &in); err != nil {
		writeError(w, h.log, "CreateDistrict", err)
		return
	}

	district, err := h.hierarchy.Districts.Create(r.Context(), in)
	if err != nil {
		h.log.Debug("CreateDistrict: rejected",
			zap.String("name", in.Name), zap.String("state", in.State), zap.Error(err))
		writeError(w, h.log, "CreateDistrict", err)
		return
	}
	writeSuccess(w, http.StatusCreated, district, store.MsgCreated)
}

func (h *Handlers) ListDistricts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.hierarchy.Districts.List(r.Context(), listQuery(r))
	if err != nil {
		writeError(w, h.log, "ListDistricts", err)
		return
	}
	writeSuccess(w, http.StatusOK, rows, store.MsgSuccessful)
}

func (h *Handlers) GetDistrict(w http.ResponseWriter, r *http.Request) {
	district, err := h.hierarchy.Districts.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, h.log, "GetDistrict", err)
		return
	}
	writeSuccess(w, http.StatusOK, district, store.MsgSuccessful)
}

func (h *Handlers) RemoveDistrict(w http.ResponseWriter, r *http.Request) {
	if err := h.hierarchy.Districts.Remove(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, h.log, "RemoveDistrict", err)
		return
	}
	writeSuccess(w, http.StatusOK, nil, store.MsgDeleted)
}
