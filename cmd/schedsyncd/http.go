package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"schedsync-backend/lib/timezone"
	"schedsync-backend/services/schedsync"
)

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response body", "err", err)
	}
}

type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func registerHandlers(mux *http.ServeMux, service *schedsync.Service) {
	mux.HandleFunc("POST /v1/install", func(w http.ResponseWriter, r *http.Request) {
		result := service.Install(r.Context())
		status := http.StatusOK
		if !result.Success {
			status = http.StatusBadGateway
		}
		writeJson(w, status, result)
	})

	mux.HandleFunc("POST /v1/refresh", func(w http.ResponseWriter, r *http.Request) {
		service.MarkStale()
		result, err := service.Refresh(r.Context(), schedsync.SyncEverything())
		if err != nil {
			writeJson(w, http.StatusBadGateway, errorBody{Message: err.Error()})
			return
		}
		writeJson(w, http.StatusOK, result)
	})

	mux.HandleFunc("GET /v1/schedule", func(w http.ResponseWriter, r *http.Request) {
		from := time.Now()
		to := from.Add(7 * 24 * time.Hour)

		if raw := r.URL.Query().Get("from"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeJson(w, http.StatusBadRequest, errorBody{Message: "invalid from date"})
				return
			}
			from = parsed
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeJson(w, http.StatusBadRequest, errorBody{Message: "invalid to date"})
				return
			}
			to = parsed
		}

		schedule, err := service.LiveSchedule(r.Context(), from, to)
		if err != nil {
			writeJson(w, http.StatusBadGateway, errorBody{Message: err.Error()})
			return
		}
		writeJson(w, http.StatusOK, schedule)
	})

	mux.HandleFunc("GET /v1/status", func(w http.ResponseWriter, r *http.Request) {
		inst := service.Installation()
		writeJson(w, http.StatusOK, map[string]any{
			"status":      inst.Status,
			"site_id":     inst.SiteID,
			"last_synced": inst.LastSynced.In(timezone.Fallback).Format(time.RFC3339),
		})
	})
}
