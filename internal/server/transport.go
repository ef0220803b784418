package server

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/krithika183/spotify-popularity-predicton/internal/predict"
)

type PredictResponse struct {
	Popularity int `json:"popularity"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s *Server) httpMakePrediction(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	// degraded services refuse before the payload is even read
	if s.svc.State() == predict.Degraded {
		code, payload := apiMakePrediction(r.Context(), s.svc, nil)
		s.write(w, code, payload)
		return
	}

	raw, err := decodeFeatures(r.Body)
	if err != nil {
		log.Debug().Err(err).Msg("rejecting prediction payload")
		respondWithError(w, r, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	code, payload := apiMakePrediction(r.Context(), s.svc, raw)
	s.write(w, code, payload)
}

func (s *Server) httpModelInfo(w http.ResponseWriter, r *http.Request) {
	if s.svc.State() == predict.Degraded {
		respondWithError(w, r, http.StatusServiceUnavailable, msgModelNotLoaded)
		return
	}
	s.write(w, http.StatusOK, s.svc.Describe())
}

func (s *Server) httpHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.StartupErr(); err != nil {
		s.write(w, http.StatusServiceUnavailable, &HealthResponse{Status: predict.Degraded.String(), Error: err.Error()})
		return
	}
	s.write(w, http.StatusOK, &HealthResponse{Status: predict.Ready.String()})
}

func (s *Server) httpIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(indexHTML); err != nil {
		log.Error().Err(err).Msg("writing index page")
	}
}

func (s *Server) write(w http.ResponseWriter, code int, payload interface{}) {
	if err := respondWithJSON(w, code, payload); err != nil {
		log.Error().Err(err).Msg("writing response")
	}
}
