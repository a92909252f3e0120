package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avelichko/news-digest/app/database"
	"github.com/avelichko/news-digest/app/orgs"
	"github.com/avelichko/news-digest/app/runner"
)

const defaultRunListLimit = 50

func NewHandler(runRepo database.RunRepository, seenRepo database.SeenItemRepository,
	orgsCache *orgs.Cache, dispatcher Dispatcher) *Handler {
	return &Handler{
		runRepo:    runRepo,
		seenRepo:   seenRepo,
		orgsCache:  orgsCache,
		dispatcher: dispatcher,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"next_run":  h.dispatcher.NextRun().Format(time.RFC3339),
	}

	if succeeded, failed, err := h.runRepo.GetRunCounts(); err == nil {
		health["runs_succeeded"] = succeeded
		health["runs_failed"] = failed
	}

	if seenCount, err := h.seenRepo.GetSeenCount(); err == nil {
		health["seen_items"] = seenCount
	}

	health["organizations"] = h.orgsCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) ListRuns(c *gin.Context) {
	limit := defaultRunListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	runs, err := h.runRepo.ListRuns(limit)
	if err != nil {
		slog.Error("Database error", "operation", "list_runs", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	responses := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		responses = append(responses, toRunResponse(run))
	}

	c.JSON(http.StatusOK, gin.H{"runs": responses})
}

func (h *Handler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runRepo.GetRun(id)
	if err != nil {
		slog.Error("Database error", "operation", "get_run", "run_id", id, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if run == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
		return
	}

	c.JSON(http.StatusOK, toRunResponse(*run))
}

// DispatchRun triggers a manual job run, identical in behavior to a
// scheduled one.
func (h *Handler) DispatchRun(c *gin.Context) {
	runID, err := h.dispatcher.Dispatch(runner.TriggerManual)
	if err != nil {
		if errors.Is(err, runner.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
			return
		}
		slog.Error("Failed to dispatch run", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	slog.Info("Manual run dispatched", "run_id", runID)

	c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
}

func (h *Handler) ListOrgs(c *gin.Context) {
	configs := h.orgsCache.GetConfigs()

	responses := make([]orgResponse, 0, len(configs))
	for _, config := range configs {
		responses = append(responses, orgResponse{
			Name:           config.Name,
			Keywords:       config.Keywords,
			Enabled:        config.Settings.Enabled,
			MaxArticles:    config.Settings.MaxArticles,
			ExtractContent: config.Settings.ExtractContent,
		})
	}

	c.JSON(http.StatusOK, gin.H{"organizations": responses})
}

func (h *Handler) GetOrg(c *gin.Context) {
	config, err := h.orgsCache.GetConfig(c.Param("name"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "organization not found"})
		return
	}

	c.JSON(http.StatusOK, orgResponse{
		Name:           config.Name,
		Keywords:       config.Keywords,
		Enabled:        config.Settings.Enabled,
		MaxArticles:    config.Settings.MaxArticles,
		ExtractContent: config.Settings.ExtractContent,
	})
}

func toRunResponse(run database.Run) runResponse {
	return runResponse{
		ID:            run.ID,
		Trigger:       run.TriggerKind,
		Status:        run.Status,
		Stage:         run.Stage,
		Error:         run.Error,
		ExitCode:      run.ExitCode,
		ArticlesFound: run.ArticlesFound,
		EmailSent:     run.EmailSent,
		StartedAt:     run.StartedAt,
		FinishedAt:    run.FinishedAt,
	}
}
