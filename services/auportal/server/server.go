package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	scraper "auportal-backend/lib/scrapers/auportal"
	auportal "auportal-backend/services/auportal"

	"github.com/gorilla/mux"
)

// Server exposes the captcha login workflow over plain JSON HTTP for
// the presentation layer.
type Server struct {
	service auportal.Service
}

func NewRouter(service auportal.Service) *mux.Router {
	s := Server{service: service}

	r := mux.NewRouter()
	r.HandleFunc("/api/init-session", s.initSession).Methods(http.MethodGet)
	r.HandleFunc("/api/captcha-audio/{session_id}", s.captchaAudio).Methods(http.MethodGet)
	r.HandleFunc("/api/fetch-data", s.fetchData).Methods(http.MethodPost)
	r.HandleFunc("/get", s.legacyFetch).Methods(http.MethodGet)
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Error: message})
}

func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, scraper.UpstreamTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, scraper.UpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s Server) initSession(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.InitSession(r.Context())
	if err != nil {
		respondError(w, upstreamStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s Server) captchaAudio(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["session_id"]

	audio, err := s.service.CaptchaAudio(r.Context(), sessionId)
	if err != nil {
		switch {
		case errors.Is(err, auportal.SessionNotFound),
			errors.Is(err, auportal.NoCaptchaAvailable):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			respondError(w, upstreamStatus(err), err.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", "inline; filename=captcha.wav")
	w.Write(audio)
}

func fetchDataStatus(err error) int {
	switch {
	case errors.Is(err, auportal.SessionExpiredOrInvalid),
		errors.Is(err, auportal.InvalidRegisterNumber),
		errors.Is(err, auportal.InvalidDateOfBirth),
		errors.Is(err, scraper.NoTables):
		return http.StatusBadRequest
	case errors.Is(err, scraper.AuthenticationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, scraper.UpstreamTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s Server) fetchData(w http.ResponseWriter, r *http.Request) {
	var req auportal.FetchDataRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if err != nil {
		respondError(w, http.StatusBadRequest, "No data provided")
		return
	}
	if req.SessionId == "" || req.RegisterNo == "" || req.Dob == "" || req.CaptchaSolution == "" {
		respondError(
			w, http.StatusBadRequest,
			"Missing required fields: session_id, register_no, dob, captcha_solution",
		)
		return
	}

	data, err := s.service.FetchData(r.Context(), req)
	if err != nil {
		respondError(w, fetchDataStatus(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, data)
}

// legacyFetch is the pre-captcha endpoint. It always answers 200 and
// reports problems in the body, which its remaining callers depend on.
func (s Server) legacyFetch(w http.ResponseWriter, r *http.Request) {
	registerNo := r.URL.Query().Get("register_no")
	dob := r.URL.Query().Get("dob")

	if registerNo == "" || dob == "" {
		respondJSON(w, http.StatusOK, errorBody{
			Error: "Request parameters are not in correct format.",
		})
		return
	}

	validReg := auportal.ValidRegisterNo(registerNo)
	validDob := auportal.ValidDob(dob)
	switch {
	case !validReg && !validDob:
		respondJSON(w, http.StatusOK, errorBody{Error: "Invalid Register Number and Date of Birth."})
		return
	case !validReg:
		respondJSON(w, http.StatusOK, errorBody{Error: "Invalid Register Number."})
		return
	case !validDob:
		respondJSON(w, http.StatusOK, errorBody{Error: "Date of Birth is invalid."})
		return
	}

	data, err := s.service.LegacyFetch(r.Context(), registerNo, dob)
	if err != nil {
		respondJSON(w, http.StatusOK, errorBody{Error: err.Error()})
		return
	}
	respondJSON(w, http.StatusOK, data)
}
