package web

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/wincap/wincap/internal/config"
	"github.com/wincap/wincap/internal/database"
	"github.com/wincap/wincap/internal/models"
	"github.com/wincap/wincap/internal/monitor"
	"github.com/wincap/wincap/internal/reporter"
)

const (
	defaultGIFLimit = 20
	maxGIFLimit     = 500
)

// StatusProvider exposes the live monitoring session
type StatusProvider interface {
	Status() monitor.Status
}

type Handler struct {
	config   *config.Config
	repo     *database.Repository
	reporter *reporter.Reporter
	status   StatusProvider
	logger   *slog.Logger
	now      func() time.Time
}

func NewHandler(cfg *config.Config, repo *database.Repository, status StatusProvider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		config:   cfg,
		repo:     repo,
		reporter: reporter.New(repo),
		status:   status,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/commands", h.handleCommands)
	mux.HandleFunc("/api/gifs", h.handleGIFs)
	mux.HandleFunc("/api/report", h.handleReport)

	mux.HandleFunc("/health", h.handleHealth)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]any{
		"running":     h.status != nil,
		"save_dir":    h.config.Paths.SaveDir,
		"gif_dir":     h.config.Paths.GIFDir,
		"command_log": h.config.Paths.CommandLog,
		"frame_count": h.config.Capture.FrameCount,
	}
	if h.status != nil {
		status["session"] = h.status.Status()
	}

	h.respondJSON(w, status)
}

func (h *Handler) handleCommands(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	period, err := reporter.GetPeriod(periodType, h.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	commands, err := h.repo.GetCommandsSince(period.Start)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch commands: %v", err), http.StatusInternalServerError)
		return
	}
	if commands == nil {
		commands = []*models.CommandEntry{}
	}

	h.respondJSON(w, map[string]any{
		"period":   period,
		"commands": commands,
	})
}

func (h *Handler) handleGIFs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultGIFLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(l, maxGIFLimit)
	}

	gifs, err := h.repo.GetGIFsSince(time.Time{}, limit)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to fetch gifs: %v", err), http.StatusInternalServerError)
		return
	}
	if gifs == nil {
		gifs = []*models.GIFRecord{}
	}

	h.respondJSON(w, gifs)
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	periodType := r.URL.Query().Get("period")
	if periodType == "" {
		periodType = "day"
	}

	if _, err := reporter.GetPeriod(periodType, h.now()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := h.reporter.GenerateReport(periodType)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate report: %v", err), http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, report)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Error encoding JSON", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
