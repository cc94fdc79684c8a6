package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/noxuslabs/noxus/internal/common"
	"github.com/noxuslabs/noxus/internal/llm"
)

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	logger := common.Logger()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("api: chat decode failed", "error", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Message == "" {
		logger.Warn("api: chat message missing")
		writeError(w, http.StatusBadRequest, fmt.Errorf("message required"))
		return
	}
	if req.IncludeContext != nil {
		s.session.SetIncludeContext(*req.IncludeContext)
	}
	logger.Info("api: chat request received", "message_length", len(req.Message))
	reply, err := s.session.Send(r.Context(), req.Message)
	if err != nil {
		logger.Error("api: chat turn failed", "error", err)
		writeError(w, statusForPipelineError(err), err)
		return
	}
	logger.Info("api: chat turn succeeded", "provider", s.provider.Name())
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply, Provider: s.provider.Name()})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	turns := make([]llm.Message, 0)
	for _, msg := range s.session.History() {
		if msg.Role == "system" {
			continue
		}
		turns = append(turns, msg)
	}
	writeJSON(w, http.StatusOK, historyResponse{Messages: turns, LastError: s.session.LastError()})
}
