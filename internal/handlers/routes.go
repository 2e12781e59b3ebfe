package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// Routes registers every endpoint on a new router
func (h *Handler) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/", h.HandleHome).Methods(http.MethodGet)
	router.HandleFunc("/upload", h.HandleUploadPage).Methods(http.MethodGet)
	router.HandleFunc("/upload", h.HandleUpload).Methods(http.MethodPost)
	router.HandleFunc("/analyze", h.HandleAnalyze).Methods(http.MethodPost)
	router.HandleFunc("/analyses/clear", h.HandleClearAnalyses).Methods(http.MethodPost)
	router.HandleFunc("/ask", h.HandleAskPage).Methods(http.MethodGet)
	router.HandleFunc("/ask", h.HandleAsk).Methods(http.MethodPost)
	router.HandleFunc("/history", h.HandleHistory).Methods(http.MethodGet)
	router.HandleFunc("/history/clear", h.HandleClearHistory).Methods(http.MethodPost)
	router.HandleFunc("/about", h.HandleAbout).Methods(http.MethodGet)
	router.HandleFunc("/reports", h.HandleExport).Methods(http.MethodPost)
	router.HandleFunc("/reports/{name}", h.HandleReport).Methods(http.MethodGet)
	router.HandleFunc("/assets/{file}", h.HandleAsset).Methods(http.MethodGet)
	router.HandleFunc("/api/session", h.HandleSession).Methods(http.MethodGet)
	router.HandleFunc("/healthcheck", h.HandleHealthcheck).Methods(http.MethodGet)

	return router
}
