// Package webhook handles the Meta webhook surface: the subscription
// verification handshake and mention event deliveries.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"aicheckr.app/mentions/common/id"
	"aicheckr.app/mentions/common/logger"
	"aicheckr.app/mentions/internal/dispatch"
	"aicheckr.app/mentions/internal/model"
	"aicheckr.app/mentions/internal/notification"
	"aicheckr.app/mentions/internal/service"
)

// maxBodySize bounds a delivery body (1 MB). Meta batches up to 1000 updates
// per notification, which stays well under this limit.
const maxBodySize = 1 << 20

type MetaWebhookHandler struct {
	verifyToken string
	ingest      service.MentionIngestService
	reply       service.ReplyService // nil when auto-reply is disabled
	dispatcher  dispatch.Dispatcher
}

func NewMetaWebhookHandler(verifyToken string, ingest service.MentionIngestService, reply service.ReplyService, dispatcher dispatch.Dispatcher) *MetaWebhookHandler {
	return &MetaWebhookHandler{
		verifyToken: verifyToken,
		ingest:      ingest,
		reply:       reply,
		dispatcher:  dispatcher,
	}
}

// Verify answers the subscription handshake. Success requires the literal
// "subscribe" mode, an exact token match, and a non-empty challenge; every
// other combination fails closed with an uninformative 403. The true token
// must never appear in the response or the logs.
func (h *MetaWebhookHandler) Verify(c *gin.Context) {
	ctx := c.Request.Context()

	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken && challenge != "" {
		slog.InfoContext(ctx, "webhook verification succeeded")
		c.String(http.StatusOK, challenge)
		return
	}

	slog.WarnContext(ctx, "webhook verification rejected", "mode", mode, "challenge_present", challenge != "")
	c.String(http.StatusForbidden, "verification failed")
}

// HandleEvent processes a mention delivery. The acknowledgment is sent
// before any downstream work: the platform retries slow deliveries, and
// nothing past the ack may alter the HTTP outcome already sent.
func (h *MetaWebhookHandler) HandleEvent(c *gin.Context) {
	ctx := c.Request.Context()

	deliveryID := id.New()
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		DeliveryID: &deliveryID,
		Component:  "mentions.webhook",
	})

	var events []model.MentionEvent
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodySize))
	if err != nil {
		// Still ack: the platform would otherwise redeliver forever, and
		// a body we cannot read is a body we cannot read next time either.
		slog.WarnContext(ctx, "failed to read delivery body", "error", err)
	} else {
		events = notification.Mentions(body)
		slog.InfoContext(ctx, "webhook delivery received", "bytes", len(body), "mentions", len(events))
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})

	if len(events) == 0 {
		return
	}

	h.dispatcher.Dispatch(ctx, "webhook.process_delivery", func(ctx context.Context) {
		res := h.ingest.Ingest(ctx, events)
		slog.InfoContext(ctx, "delivery processed",
			"enqueued", res.Enqueued,
			"duplicates", res.Duplicates,
			"failed", res.Failed,
		)

		if h.reply == nil {
			return
		}
		for _, ev := range events {
			outcome := h.reply.HandleMention(ctx, ev)
			slog.InfoContext(ctx, "reply workflow finished",
				"media_id", ev.MediaID,
				"comment_id", ev.CommentID,
				"outcome", string(outcome),
			)
		}
	})
}

// Preflight answers CORS preflight requests with permissive headers and no
// further processing.
func (h *MetaWebhookHandler) Preflight(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization")
	c.Status(http.StatusOK)
}
