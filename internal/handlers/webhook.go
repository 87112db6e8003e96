package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/snapguide/snapguide/internal/event"
)

const webhookMaxBodyBytes int64 = 1 << 20 // 1 MiB

// signatureHeader carries the HMAC-SHA256 digest of the raw request body,
// base64 encoded by the platform.
const signatureHeader = "X-Line-Signature"

type signatureValidator interface {
	ValidateSignature(signature string, body []byte) bool
}

type batchDispatcher interface {
	Dispatch(ctx context.Context, batchID string, events []event.Event)
}

// WebhookHandler receives messaging-platform webhook callbacks and hands
// parsed batches to the dispatcher. The platform retries on non-2xx, so the
// handler only reports transport-level failures; per-event failures are the
// dispatcher's business.
type WebhookHandler struct {
	logger     *slog.Logger
	validator  signatureValidator
	dispatcher batchDispatcher
}

// NewWebhookHandler creates the public webhook handler. validator may be nil
// to accept unsigned requests, which is only acceptable behind a trusted
// proxy or in tests.
func NewWebhookHandler(log *slog.Logger, validator signatureValidator, dispatcher batchDispatcher) *WebhookHandler {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookHandler{
		logger:     log.With(slog.String("handler", "webhook")),
		validator:  validator,
		dispatcher: dispatcher,
	}
}

// Register registers webhook callback routes.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.GET("/webhook", h.HandleProbe)
	e.POST("/webhook", h.Handle)
}

// HandleProbe responds to health/probe requests on the webhook URL.
func (h *WebhookHandler) HandleProbe(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Handle processes one webhook delivery: verify, parse, dispatch, respond.
func (h *WebhookHandler) Handle(c echo.Context) error {
	if h.dispatcher == nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, webhookMaxBodyBytes+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(payload)) > webhookMaxBodyBytes {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("payload too large: max %d bytes", webhookMaxBodyBytes))
	}

	if h.validator != nil {
		if !h.validator.ValidateSignature(c.Request().Header.Get(signatureHeader), payload) {
			h.logger.Warn("webhook signature rejected",
				slog.String("remote", c.RealIP()))
			return echo.NewHTTPError(http.StatusForbidden, "invalid signature")
		}
	}

	events, err := event.ParseBatch(payload)
	if err != nil {
		h.logger.Error("webhook batch unparseable", slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"status": "error"})
	}

	batchID := uuid.NewString()
	h.logger.Info("webhook batch accepted",
		slog.String("batch_id", batchID),
		slog.Int("events", len(events)))

	// Detach from the request context so a client disconnect does not cancel
	// replies mid-batch. Reply tokens are single-use; an aborted send cannot
	// be retried.
	h.dispatcher.Dispatch(context.WithoutCancel(c.Request().Context()), batchID, events)

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
