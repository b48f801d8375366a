// Package api 通信服务的 HTTP 入口
package api

import (
	"strings"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/d60-Lab/contest-communication/internal/api/handler"
	"github.com/d60-Lab/contest-communication/internal/api/middleware"
	"github.com/d60-Lab/contest-communication/internal/service"
	"github.com/d60-Lab/contest-communication/pkg/response"
)

// Options 路由可选项
type Options struct {
	// ServiceName enables otelgin tracing when non-empty.
	ServiceName string
	// Sentry installs the sentry middleware; sentry.Init must have run.
	Sentry  bool
	Limiter *middleware.TokenLimiter
}

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
	}
}

// NewRouter 注册全部路由
func NewRouter(svc service.CommunicationService, opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.AccessLog())
	if opts.Sentry {
		r.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	if opts.ServiceName != "" {
		r.Use(otelgin.Middleware(opts.ServiceName))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	h := handler.NewHandler(svc)

	r.GET("/healthz", func(c *gin.Context) { response.Success(c, gin.H{"status": "ok"}) })

	comm := r.Group("/communications")
	comm.GET("", h.ListAnnouncements)
	comm.POST("", h.AddAnnouncement)
	comm.GET("/:token", h.ListQuestions)
	ask := []gin.HandlerFunc{h.AskQuestion}
	if opts.Limiter != nil {
		ask = append([]gin.HandlerFunc{opts.Limiter.Middleware()}, ask...)
	}
	comm.POST("/:token", ask...)
	comm.POST("/:token/:id", h.AnswerQuestion)
	return r
}
