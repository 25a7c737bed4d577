package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/surveybridge-backend/internal/http/response"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/manifest"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/services"
)

type IngestRunHandler struct {
	log  *logger.Logger
	runs services.IngestRunService
}

func NewIngestRunHandler(baseLog *logger.Logger, runs services.IngestRunService) *IngestRunHandler {
	return &IngestRunHandler{log: baseLog.With("handler", "IngestRunHandler"), runs: runs}
}

// POST /api/ingest-runs
// body: {"clear_first": bool, "courses": [{"course_id", "file", "description"}]}
func (h *IngestRunHandler) StartRun(c *gin.Context) {
	var m manifest.Manifest
	if err := c.ShouldBindJSON(&m); err != nil {
		badRequest(c, err)
		return
	}
	run, err := h.runs.Start(c.Request.Context(), &m)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"run": run})
}
