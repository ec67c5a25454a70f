package main

import (
	"encoding/json"
	"net/http"
	"time"
)

var startedAt = time.Now()

type healthStatus struct {
	Status  string `json:"status"`
	Skill   bool   `json:"skill"`
	Uptime  string `json:"uptime"`
	Service string `json:"service"`
}

func addHealthRoutes(router *http.ServeMux) {
	handleDedicatedRoute(router, routeHealth, http.HandlerFunc(health))
}

func health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:  "ok",
		Skill:   alexaSkill != nil,
		Uptime:  time.Since(startedAt).Truncate(time.Second).String(),
		Service: appName,
	}
	code := http.StatusOK
	if !status.Skill {
		status.Status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if r.Method != http.MethodHead {
		json.NewEncoder(w).Encode(status)
	}
}
