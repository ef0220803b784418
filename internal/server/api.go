package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/krithika183/spotify-popularity-predicton/internal/predict"
)

const (
	msgModelNotLoaded = "Model not loaded. Please check server logs."
	msgInvalidPayload = "Invalid request payload"
)

var errNotObject = errors.New("request body must be a JSON object")

// decodeFeatures reads the request body as a JSON object. An empty body is an
// empty object.
func decodeFeatures(body io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	raw := map[string]any{}
	if len(data) == 0 {
		return raw, nil
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	switch obj := v.(type) {
	case map[string]any:
		return obj, nil
	case nil:
		return raw, nil
	}
	return nil, errNotObject
}

func apiMakePrediction(ctx context.Context, svc *predict.Service, raw map[string]any) (int, interface{}) {
	res, err := svc.Predict(ctx, raw)
	switch {
	case err == nil:
		return http.StatusOK, &PredictResponse{Popularity: res.Popularity}
	case errors.Is(err, predict.ErrModelUnavailable):
		return http.StatusInternalServerError, &ErrorResponse{Error: msgModelNotLoaded}
	default:
		var predErr *predict.PredictionError
		if errors.As(err, &predErr) {
			return http.StatusInternalServerError, &ErrorResponse{Error: "Prediction failed: " + predErr.Err.Error()}
		}
		return http.StatusInternalServerError, &ErrorResponse{Error: err.Error()}
	}
}

// helper functions

func respondWithError(w http.ResponseWriter, r *http.Request, code int, message string) {
	log.Ctx(r.Context()).Error().Int("status", code).Msg(message)
	respondWithJSON(w, code, &ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) error {
	response, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, err = w.Write(response)
	return err
}
