package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/stas-makutin/skillgate/internal/skillauth"
)

func addAlexaSkillRoutes(router *http.ServeMux) {
	handleDedicatedRoute(router, routeAlexaSkill, http.HandlerFunc(alexaSkillRequest))
}

func alexaSkillRequest(w http.ResponseWriter, r *http.Request) {
	if alexaSkill == nil {
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}

	// the signature covers the exact bytes, so the body is read once and never re-encoded
	body, err := io.ReadAll(r.Body)
	if err != nil {
		status := http.StatusBadRequest
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
		}
		httpAppendToLog(r, fmt.Sprintf("body read failed: %v", err))
		http.Error(w, http.StatusText(status), status)
		return
	}

	result := alexaSkill.Serve(r.Context(), r.Header, body)
	if result.Err != nil {
		reason := result.Err.Error()
		if kind, ok := skillauth.KindOf(result.Err); ok {
			reason = kind.String()
		}
		if result.Status != http.StatusOK {
			httpAppendToLog(r, fmt.Sprintf("skill request %v rejected: %v", result.RequestID, reason))
			http.Error(w, string(result.Body), result.Status)
			return
		}
		httpAppendToLog(r, fmt.Sprintf("skill request %v needs account linking: %v", result.RequestID, reason))
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(result.Status)
	w.Write(result.Body)
}
