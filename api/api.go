package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voicegate/asr"
	"github.com/kbukum/voicegate/asr/funasr"
	apperrors "github.com/kbukum/voicegate/errors"
	"github.com/kbukum/voicegate/logger"
	"github.com/kbukum/voicegate/observability"
	"github.com/kbukum/voicegate/server"
	"github.com/kbukum/voicegate/tts"
)

// Handler serves the /v1 routes.
type Handler struct {
	asr      *asr.Service
	tts      *tts.Service
	realtime *funasr.Provider

	originPatterns []string
	metrics        *observability.Metrics
	log            *logger.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithRealtime enables the Fun-ASR websocket relay.
func WithRealtime(p *funasr.Provider) Option {
	return func(h *Handler) { h.realtime = p }
}

// WithOriginPatterns sets the origins allowed to open the relay websocket.
// Same-origin requests are always allowed.
func WithOriginPatterns(patterns ...string) Option {
	return func(h *Handler) { h.originPatterns = patterns }
}

// WithMetrics records API errors.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// WithLogger sets the logger. The default is the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(h *Handler) { h.log = l }
}

// New creates a Handler for the two services.
func New(asrSvc *asr.Service, ttsSvc *tts.Service, opts ...Option) *Handler {
	h := &Handler{asr: asrSvc, tts: ttsSvc}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.WithComponent("api")
	}
	return h
}

// Mount registers the Gin routes on srv and the realtime relay on its root
// mux.
func (h *Handler) Mount(srv *server.Server) {
	h.Register(srv.GinEngine())
	srv.Handle(RealtimeEndpoint, h.Realtime())
}

// Register mounts the Gin routes on r. The realtime relay is served by
// Realtime instead.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/v1")

	a := v1.Group("/asr")
	a.GET("/providers", h.asrProviders)
	a.POST("/transcribe", h.transcribe)
	a.GET("/fun/realtime/usage", h.realtimeUsage)

	t := v1.Group("/tts")
	t.GET("/providers", h.ttsProviders)
	t.POST("/synthesize", h.synthesize)
	t.POST("/qwen/enroll", h.enroll(tts.QwenCloneTTS))
	t.GET("/qwen/voices", h.voices)
	t.DELETE("/qwen/voice", h.deleteVoice)
	t.POST("/cosyvoice/enroll", h.enroll(tts.CosyVoiceTTS))
	t.GET("/cosyvoice/voices", h.voices)

	v1.GET("/providers/state", h.providerState)
}

func (h *Handler) providerState(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		asr.Capability: h.asr.Statuses(),
		tts.Capability: h.tts.Statuses(),
	})
}

// fail records and writes err for a route of the given capability.
func (h *Handler) fail(c *gin.Context, capability string, err error) {
	server.RespondWithError(c, h.record(c.Request.Context(), capability, err))
}

func (h *Handler) record(ctx context.Context, capability string, err error) *apperrors.AppError {
	appErr := apperrors.From(err)
	h.metrics.RecordError(ctx, string(appErr.Code), capability)

	fields := logger.Fields(
		logger.FieldCapability, capability,
		"code", string(appErr.Code),
		logger.FieldStatus, appErr.HTTPStatus,
	)
	log := h.log.WithContext(ctx).WithError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.Warn("request failed", fields)
	} else {
		log.Debug("request rejected", fields)
	}
	return appErr
}
