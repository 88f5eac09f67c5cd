package handlers

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/clipforge-backend/internal/dispatch"
	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/repos"
	"github.com/yungbote/clipforge-backend/internal/types"
)

const linkDownloadEndpoint = "begin-youtube-link-download"

// atomFeed is the PubSubHubbub push payload for a new channel upload.
type atomFeed struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string `xml:"videoId"`
	ChannelID string `xml:"channelId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
}

// WebhookHandler serves /youtube-webhook: the hub's GET verification echo and
// the POST notifications that record a video document and enqueue its
// download. It sits outside the task-token middleware.
type WebhookHandler struct {
	log        *logger.Logger
	channels   repos.ChannelRepo
	videos     repos.VideoRepo
	ledger     *pipeline.Ledger
	dispatcher dispatch.Dispatcher
}

func NewWebhookHandler(
	log *logger.Logger,
	channels repos.ChannelRepo,
	videos repos.VideoRepo,
	ledger *pipeline.Ledger,
	dispatcher dispatch.Dispatcher,
) *WebhookHandler {
	return &WebhookHandler{
		log:        log.With("handler", "WebhookHandler"),
		channels:   channels,
		videos:     videos,
		ledger:     ledger,
		dispatcher: dispatcher,
	}
}

// Verify answers the hub's subscribe/unsubscribe challenge by echoing it.
func (h *WebhookHandler) Verify(c *gin.Context) {
	challenge := c.Query("hub.challenge")
	if challenge == "" {
		c.String(http.StatusBadRequest, "missing hub.challenge")
		return
	}
	h.log.Info("Webhook verification", "mode", c.Query("hub.mode"), "topic", c.Query("hub.topic"))
	c.String(http.StatusOK, challenge)
}

// Notify ingests one Atom push. Notifications for untracked channels and
// already-seen videos are acknowledged without effect; the hub retries on
// anything but a 2xx.
func (h *WebhookHandler) Notify(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.String(http.StatusBadRequest, "read body: %v", err)
		return
	}
	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		c.String(http.StatusBadRequest, "parse feed: %v", err)
		return
	}
	ctx := c.Request.Context()
	for _, entry := range feed.Entries {
		if entry.VideoID == "" || entry.ChannelID == "" {
			continue
		}
		if err := h.ingest(ctx, entry); err != nil {
			h.log.Error("Webhook ingest failed", "video_id", entry.VideoID, "error", err)
			c.String(http.StatusInternalServerError, "ingest failed")
			return
		}
	}
	c.Status(http.StatusOK)
}

func (h *WebhookHandler) ingest(ctx context.Context, entry atomEntry) error {
	channel, err := h.channels.GetByID(ctx, nil, entry.ChannelID)
	if err != nil {
		return fmt.Errorf("load channel: %w", err)
	}
	if channel == nil {
		h.log.Debug("Notification for untracked channel", "channel_id", entry.ChannelID)
		return nil
	}
	link := "https://www.youtube.com/watch?v=" + entry.VideoID
	existing, err := h.videos.GetByLink(ctx, nil, link)
	if err != nil {
		return fmt.Errorf("check existing video: %w", err)
	}
	if existing != nil {
		return nil
	}
	video := &types.Video{
		ID:               uuid.NewString(),
		UID:              channel.UID,
		ChannelID:        channel.ID,
		OriginalFileName: entry.Title,
		Link:             link,
		Status:           "Pending Download",
		UploadTimestamp:  time.Now(),
	}
	if err := h.videos.Create(ctx, nil, video); err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	if published, perr := time.Parse(time.RFC3339, entry.Published); perr == nil {
		if published.After(channel.LastPublished) {
			if err := h.channels.SetLastPublished(ctx, nil, channel.ID, published); err != nil {
				h.log.Warn("Channel last_published update failed", "channel_id", channel.ID, "error", err)
			}
		}
	}
	if _, err := h.ledger.CreateForEntity(ctx, linkDownloadEndpoint, pipeline.BindVideo, video.ID, channel.UID, 0); err != nil {
		return err
	}
	if err := h.dispatcher.Enqueue(ctx, linkDownloadEndpoint, video.ID, 0); err != nil {
		return err
	}
	h.log.Info("Link ingest recorded", "video_id", video.ID, "channel_id", channel.ID)
	return nil
}
