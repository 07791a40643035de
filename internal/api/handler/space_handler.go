package handler

import (
	"impactlab/internal/app/service"
	"impactlab/internal/common"
	"impactlab/internal/domain/model"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

type SpaceHandler struct {
	spaceService *service.SpaceService
}

func NewSpaceHandler(ss *service.SpaceService) *SpaceHandler {
	return &SpaceHandler{spaceService: ss}
}

// RegisterRoutes mounts the public catalog.
func (h *SpaceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.listRooms)         // GET /api/rooms
	r.Get("/{roomSlug}", h.getRoom) // GET /api/rooms/blue-room
}

// RegisterAdminRoutes mounts space management. The caller guards it.
func (h *SpaceHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.listSpaces)
	r.Post("/", h.createSpace)
	r.Put("/{spaceID}", h.updateSpace)
	r.Delete("/{spaceID}", h.deleteSpace)
}

func (h *SpaceHandler) listRooms(w http.ResponseWriter, r *http.Request) {
	q, err := parseRoomsQuery(r.URL.Query())
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	page, err := h.spaceService.ListRooms(r.Context(), q)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, page)
}

func (h *SpaceHandler) getRoom(w http.ResponseWriter, r *http.Request) {
	room, err := h.spaceService.GetRoom(r.Context(), chi.URLParam(r, "roomSlug"))
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, room)
}

func (h *SpaceHandler) listSpaces(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePaging(r.URL.Query())
	spaces, err := h.spaceService.ListSpaces(r.Context(), page, limit)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, spaces)
}

func (h *SpaceHandler) createSpace(w http.ResponseWriter, r *http.Request) {
	var req service.SpaceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	space, err := h.spaceService.CreateSpace(r.Context(), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusCreated, space)
}

func (h *SpaceHandler) updateSpace(w http.ResponseWriter, r *http.Request) {
	var req service.SpaceRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	space, err := h.spaceService.UpdateSpace(r.Context(), chi.URLParam(r, "spaceID"), req)
	if err != nil {
		common.RespondWithErr(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, space)
}

func (h *SpaceHandler) deleteSpace(w http.ResponseWriter, r *http.Request) {
	if err := h.spaceService.DeleteSpace(r.Context(), chi.URLParam(r, "spaceID")); err != nil {
		common.RespondWithErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parsePaging reads page and limit. Bad values fall back to the service
// defaults.
func parsePaging(v url.Values) (int, int) {
	page, _ := strconv.Atoi(v.Get("page"))
	limit, _ := strconv.Atoi(v.Get("limit"))
	return page, limit
}

// parseRoomsQuery reads the catalog filters. "all" and "any" are the
// catalog form's "no filter" choices for type and capacity.
func parseRoomsQuery(v url.Values) (service.ListRoomsQuery, error) {
	q := service.ListRoomsQuery{Search: v.Get("search")}
	q.Page, q.Limit = parsePaging(v)

	if t := v.Get("type"); t != "" && t != "all" {
		q.Type = model.SpaceType(t)
	}
	if c := v.Get("capacity"); c != "" && c != "any" {
		n, err := strconv.Atoi(c)
		if err != nil {
			return q, common.Errorf("capacity must be a number: %w", common.ErrBadRequest)
		}
		q.Capacity = n
	}
	if p := v.Get("priceMax"); p != "" {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return q, common.Errorf("priceMax must be a number: %w", common.ErrBadRequest)
		}
		q.PriceMax = &f
	}
	for _, raw := range v["amenities"] {
		q.Amenities = append(q.Amenities, strings.Split(raw, ",")...)
	}
	return q, nil
}
