// Package config exposes runtime provider inspection and switching.
package config

import (
	"encoding/json"
	"net/http"

	"marketflow/pkg/core/agent"
)

// Response lists the active provider and everything registered.
type Response struct {
	ActiveProvider string   `json:"active_provider"`
	Available      []string `json:"available"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

type SwitchResponse struct {
	ActiveProvider string `json:"active_provider"`
}

// Handler serves the provider-config endpoints over an agent.Manager.
type Handler struct {
	AgentMgr *agent.Manager
}

func NewHandler(agentMgr *agent.Manager) *Handler {
	return &Handler{AgentMgr: agentMgr}
}

// HandleConfig reports the active provider and the registry.
func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	writeJSON(w, Response{
		ActiveProvider: h.AgentMgr.ActiveProvider(),
		Available:      h.AgentMgr.AvailableProviders(),
	})
}

// HandleSwitch changes the global default provider.
func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	if !preparePost(w, r) {
		return
	}

	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Provider == "" {
		http.Error(w, "provider is required", http.StatusBadRequest)
		return
	}

	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, SwitchResponse{ActiveProvider: h.AgentMgr.ActiveProvider()})
}

// preparePost applies the CORS headers and short-circuits preflight requests.
// Returns false when the caller should not proceed.
func preparePost(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return false
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
