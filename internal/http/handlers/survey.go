package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/surveybridge-backend/internal/http/response"
	"github.com/yungbote/surveybridge-backend/internal/ingestion/pipeline"
	apperr "github.com/yungbote/surveybridge-backend/internal/pkg/errors"
	"github.com/yungbote/surveybridge-backend/internal/platform/envutil"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
	"github.com/yungbote/surveybridge-backend/internal/services"
)

const defaultMaxUploadBytes = 32 << 20

type SurveyHandler struct {
	log            *logger.Logger
	survey         services.SurveyService
	maxUploadBytes int64
}

func NewSurveyHandler(baseLog *logger.Logger, survey services.SurveyService) *SurveyHandler {
	limit := int64(envutil.Int("MAX_UPLOAD_BYTES", defaultMaxUploadBytes))
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	return &SurveyHandler{
		log:            baseLog.With("handler", "SurveyHandler"),
		survey:         survey,
		maxUploadBytes: limit,
	}
}

// POST /api/courses/:course_id/uploads
// multipart: file (required), description, dry_run
func (h *SurveyHandler) UploadResponses(c *gin.Context) {
	courseID := c.Param("course_id")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "missing_file", fmt.Errorf("multipart field \"file\" required: %w", err))
		return
	}
	if fh.Size > h.maxUploadBytes {
		response.RespondError(c, http.StatusRequestEntityTooLarge, "file_too_large", fmt.Errorf("file exceeds %d bytes", h.maxUploadBytes))
		return
	}
	f, err := fh.Open()
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.RespondErr(c, err)
		return
	}

	if dry, _ := strconv.ParseBool(c.PostForm("dry_run")); dry {
		plan, err := h.survey.Plan(fh.Filename, data)
		if err != nil {
			response.RespondErr(c, err)
			return
		}
		plan.CourseID = courseID
		response.RespondOK(c, gin.H{"summary": plan})
		return
	}

	sum, err := h.survey.Ingest(c.Request.Context(), pipeline.Request{
		CourseID:    courseID,
		FileName:    fh.Filename,
		Data:        data,
		Description: c.PostForm("description"),
	})
	if err != nil {
		_ = c.Error(err)
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"summary": sum})
}

// GET /api/survey-items
func (h *SurveyHandler) ListItems(c *gin.Context) {
	items, err := h.survey.ListItems(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/courses
func (h *SurveyHandler) ListCourses(c *gin.Context) {
	courses, err := h.survey.ListCourses(c.Request.Context())
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"courses": courses})
}

// GET /api/courses/:course_id/items
func (h *SurveyHandler) CourseItems(c *gin.Context) {
	items, err := h.survey.CourseItems(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"items": items})
}

// GET /api/courses/:course_id/responses?batch_id=
func (h *SurveyHandler) CourseResponses(c *gin.Context) {
	rows, err := h.survey.CourseResponses(c.Request.Context(), c.Param("course_id"), c.Query("batch_id"))
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"responses": rows, "count": len(rows)})
}

func badRequest(c *gin.Context, err error) {
	response.RespondErr(c, fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err))
}
