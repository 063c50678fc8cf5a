package profile

import (
	"net/http"

	"github.com/clerapp/platform/pkg/common/httpx"
	"github.com/clerapp/platform/pkg/common/models"
	"github.com/clerapp/platform/pkg/gateway/auth"
	"github.com/gorilla/mux"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/user/checkOrCreateUser", h.handleCheckOrCreate).Methods(http.MethodPost)
	r.HandleFunc("/user/getAllUsers", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/user/getUserByClerkId", h.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/user/updateUser", h.handleUpdateDetails).Methods(http.MethodPost)
	r.HandleFunc("/user/updateInitialUserInfo", h.handleUpdateCore).Methods(http.MethodPost)
	r.HandleFunc("/user/deleteUser", h.handleDelete).Methods(http.MethodPost)
}

func (h *Handler) handleCheckOrCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CheckOrCreateUserRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ClerkID = auth.ResolveSubject(r.Context(), req.ClerkID)
	profile, err := h.service.UpsertByIdentity(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "checkOrCreateUser", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "user synchronized", User: &profile})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, "getAllUsers", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, users)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	clerkID := auth.ResolveSubject(r.Context(), r.URL.Query().Get("clerk_id"))
	profile, err := h.service.GetByIdentity(r.Context(), clerkID)
	if err != nil {
		httpx.WriteError(w, "getUserByClerkId", err, ErrProfileNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, profile)
}

func (h *Handler) handleUpdateDetails(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateUserRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ClerkID = auth.ResolveSubject(r.Context(), req.ClerkID)
	profile, err := h.service.UpdateDetails(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "updateUser", err, ErrProfileNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "user updated", User: &profile})
}

func (h *Handler) handleUpdateCore(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateInitialUserInfoRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ClerkID = auth.ResolveSubject(r.Context(), req.ClerkID)
	profile, err := h.service.UpdateCore(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "updateInitialUserInfo", err, ErrProfileNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "initial information updated", User: &profile})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req models.ClerkIDRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	clerkID := auth.ResolveSubject(r.Context(), req.ClerkID)
	if err := h.service.Delete(r.Context(), clerkID); err != nil {
		httpx.WriteError(w, "deleteUser", err, ErrProfileNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "user removed"})
}
