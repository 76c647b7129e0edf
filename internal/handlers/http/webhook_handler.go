package http

import (
	"net/http"

	"livemon/internal/core/ports"
	lk "livemon/internal/infrastructure/livekit"
	"livemon/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type WebhookHandler struct {
	sink       ports.EventSink
	translator *lk.Translator
	logger     *zap.SugaredLogger
}

func NewWebhookHandler(sink ports.EventSink, translator *lk.Translator, logger *zap.SugaredLogger) *WebhookHandler {
	return &WebhookHandler{
		sink:       sink,
		translator: translator,
		logger:     logger,
	}
}

func (h *WebhookHandler) SetupRoutes(router *gin.Engine) {
	router.POST("/webhooks/livekit", h.Receive)
}

// Receive accepts a LiveKit webhook payload and feeds the translated event
// into the pipeline. Payloads that translate to nothing (unknown event names,
// missing room info) are acknowledged and dropped.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload lk.WebhookEvent
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warnw("malformed webhook payload", "error", err)
		tracing.RecordError(c.Request.Context(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook payload"})
		return
	}

	event, ok := h.translator.Translate(payload)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	_, span := tracing.TraceIngest(c.Request.Context(), string(event.Kind))
	h.sink.Ingest(event)
	span.End()

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
