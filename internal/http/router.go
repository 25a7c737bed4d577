package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/surveybridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/surveybridge-backend/internal/http/middleware"
	"github.com/yungbote/surveybridge-backend/internal/observability"
	"github.com/yungbote/surveybridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	// ServiceName labels otelgin spans; empty disables the middleware.
	ServiceName string

	SurveyHandler    *httpH.SurveyHandler
	IngestRunHandler *httpH.IngestRunHandler
	EventsHandler    *httpH.EventsHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	{
		// Survey
		if cfg.SurveyHandler != nil {
			api.GET("/survey-items", cfg.SurveyHandler.ListItems)
			api.GET("/courses", cfg.SurveyHandler.ListCourses)
			api.GET("/courses/:course_id/items", cfg.SurveyHandler.CourseItems)
			api.GET("/courses/:course_id/responses", cfg.SurveyHandler.CourseResponses)
			api.POST("/courses/:course_id/uploads", cfg.SurveyHandler.UploadResponses)
		}

		// Durable manifest runs
		if cfg.IngestRunHandler != nil {
			api.POST("/ingest-runs", cfg.IngestRunHandler.StartRun)
		}

		// Progress (SSE)
		if cfg.EventsHandler != nil {
			api.GET("/events", cfg.EventsHandler.Stream)
			api.GET("/courses/:course_id/events", cfg.EventsHandler.Stream)
		}
	}

	return r
}
