package report

import (
	"net/http"
	"strconv"

	"github.com/clerapp/platform/pkg/common/httpx"
	"github.com/clerapp/platform/pkg/prescription"
	"github.com/gorilla/mux"
)

const Filename = "receita.pdf"

type Handler struct {
	generator *Generator
}

func NewHandler(generator *Generator) *Handler {
	return &Handler{generator: generator}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/prescription/report", h.handleReport).Methods(http.MethodGet)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	pdf, err := h.generator.Generate(r.Context(), r.URL.Query().Get("prescription_id"))
	if err != nil {
		httpx.WriteError(w, "report", err, prescription.ErrPrescriptionNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
