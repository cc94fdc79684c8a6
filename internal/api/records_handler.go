package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/noxuslabs/noxus/internal/common"
	"github.com/noxuslabs/noxus/internal/model"
)

func (s *Server) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	createdAt, err := parseDateField("created_at", req.CreatedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.store.InsertClient(r.Context(), model.Client{
		Name:      optionalText(req.Name),
		CreatedAt: createdAt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: client stored", "id", id)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	since, err := s.sinceParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	clients, err := s.store.Clients(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"clientes": clients})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	createdAt, err := parseDateField("created_at", req.CreatedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.store.InsertProject(r.Context(), model.Project{
		Title:     optionalText(req.Title),
		CreatedAt: createdAt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: project stored", "id", id)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	since, err := s.sinceParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	projects, err := s.store.Projects(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projetos": projects})
}

func (s *Server) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	createdAt, err := parseDateField("created_at", req.CreatedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.store.InsertAppointment(r.Context(), model.Appointment{
		ClientID:  req.ClientID,
		Status:    optionalText(req.Status),
		CreatedAt: createdAt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: appointment stored", "id", id)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	since, err := s.sinceParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	appointments, err := s.store.Appointments(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"agendamentos": appointments})
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	dueDate, err := parseDateField("data_vencimento", req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	settledAt, err := parseDateField("data_liquidacao", req.SettledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	createdAt, err := parseDateField("created_at", req.CreatedAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.store.InsertTransaction(r.Context(), model.Transaction{
		Kind:        optionalText(req.Kind),
		Amount:      req.Amount,
		Category:    optionalText(req.Category),
		Description: optionalText(req.Description),
		DueDate:     dueDate,
		SettledAt:   settledAt,
		CreatedAt:   createdAt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	common.Logger().Info("api: transaction stored", "id", id)
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	since, err := s.sinceParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	transactions, err := s.store.Transactions(r.Context(), since)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transacoes": transactions})
}

// sinceParam resolves the listing window from the optional ?days= query,
// defaulting to the server window.
func (s *Server) sinceParam(r *http.Request) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("days"))
	if raw == "" {
		return s.windowStart(), nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days <= 0 {
		return time.Time{}, fmt.Errorf("invalid days parameter: %q", raw)
	}
	return time.Now().UTC().AddDate(0, 0, -days), nil
}

func optionalText(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

// parseDateField accepts RFC3339 timestamps or plain dates.
func parseDateField(name, value string) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}
	if parsed, err := time.Parse("2006-01-02", trimmed); err == nil {
		utc := parsed.UTC()
		return &utc, nil
	}
	return nil, fmt.Errorf("invalid %s: %q", name, value)
}
