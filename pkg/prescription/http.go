package prescription

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
	r.HandleFunc("/prescription/create", h.handleCreate).Methods(http.MethodPost)
	r.HandleFunc("/prescription/createOnly", h.handleCreateEmpty).Methods(http.MethodPost)
	r.HandleFunc("/prescription/getAllPrescriptions", h.handleList).Methods(http.MethodGet)
	r.HandleFunc("/prescription/getActivePrescriptions", h.handleListActive).Methods(http.MethodGet)
	r.HandleFunc("/prescription/updatePrescription", h.handleUpdate).Methods(http.MethodPost)
	r.HandleFunc("/prescription/inactivatePrescription", h.handleDeactivate).Methods(http.MethodPost)
	r.HandleFunc("/prescription/activatePrescription", h.handleActivate).Methods(http.MethodPost)
	r.HandleFunc("/prescription/finalizePrescription", h.handleFinalize).Methods(http.MethodPost)
	r.HandleFunc("/prescription/addMedication", h.handleAppend).Methods(http.MethodPost)
	r.HandleFunc("/prescription/getAllDoctors", h.handleDoctors).Methods(http.MethodGet)
	r.HandleFunc("/prescription/getAllSpecialties", h.handleSpecialties).Methods(http.MethodGet)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.PrescriptionRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ClerkID = auth.ResolveSubject(r.Context(), req.ClerkID)
	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "create", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, models.MessageResponse{Message: "prescription created", Prescription: &p})
}

func (h *Handler) handleCreateEmpty(w http.ResponseWriter, r *http.Request) {
	var req models.PrescriptionRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ClerkID = auth.ResolveSubject(r.Context(), req.ClerkID)
	p, err := h.service.CreateEmpty(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "createOnly", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, models.MessageResponse{Message: "prescription created", Prescription: &p})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	clerkID := auth.ResolveSubject(r.Context(), r.URL.Query().Get("clerk_id"))
	list, err := h.service.ListByOwner(r.Context(), clerkID, FilterFromQuery(r.URL.Query()))
	if err != nil {
		httpx.WriteError(w, "getAllPrescriptions", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	clerkID := auth.ResolveSubject(r.Context(), r.URL.Query().Get("clerk_id"))
	list, err := h.service.ListActiveByOwner(r.Context(), clerkID)
	if err != nil {
		httpx.WriteError(w, "getActivePrescriptions", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req models.UpdatePrescriptionRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	req.ClerkID = auth.ResolveSubject(r.Context(), req.ClerkID)
	p, err := h.service.Update(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "updatePrescription", err, ErrPrescriptionNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "prescription updated", Prescription: &p})
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	var req models.InactivatePrescriptionRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	p, err := h.service.Deactivate(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "inactivatePrescription", err, ErrPrescriptionNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "prescription deactivated", Prescription: &p})
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	var req models.PrescriptionIDRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	p, err := h.service.Activate(r.Context(), req.PrescriptionID)
	if err != nil {
		httpx.WriteError(w, "activatePrescription", err, ErrPrescriptionNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "prescription activated", Prescription: &p})
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req models.PrescriptionIDRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	p, err := h.service.Finalize(r.Context(), req.PrescriptionID)
	if err != nil {
		httpx.WriteError(w, "finalizePrescription", err, ErrPrescriptionNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "prescription finalized", Prescription: &p})
}

func (h *Handler) handleAppend(w http.ResponseWriter, r *http.Request) {
	var req models.AddMedicationRequest
	if !httpx.Decode(w, r, &req) {
		return
	}
	p, err := h.service.AppendMedication(r.Context(), req)
	if err != nil {
		httpx.WriteError(w, "addMedication", err, ErrPrescriptionNotFound)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, models.MessageResponse{Message: "medication added", Prescription: &p})
}

func (h *Handler) handleDoctors(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.DoctorNames(r.Context())
	if err != nil {
		httpx.WriteError(w, "getAllDoctors", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, names)
}

func (h *Handler) handleSpecialties(w http.ResponseWriter, r *http.Request) {
	specialties, err := h.service.Specialties(r.Context())
	if err != nil {
		httpx.WriteError(w, "getAllSpecialties", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, specialties)
}
