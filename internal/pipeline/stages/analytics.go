package stages

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/clipforge-backend/internal/pipeline"
	"github.com/yungbote/clipforge-backend/internal/platform/apify"
	"github.com/yungbote/clipforge-backend/internal/platform/envutil"
	"github.com/yungbote/clipforge-backend/internal/platform/logger"
	"github.com/yungbote/clipforge-backend/internal/types"
)

// tiktokPost is the scraper's per-video dataset item.
type tiktokPost struct {
	PlayCount    int `json:"playCount"`
	DiggCount    int `json:"diggCount"`
	ShareCount   int `json:"shareCount"`
	CommentCount int `json:"commentCount"`
}

// tiktokComment is the scraper's per-comment dataset item.
type tiktokComment struct {
	CID         string    `json:"cid"`
	Text        string    `json:"text"`
	DiggCount   int       `json:"diggCount"`
	UniqueID    string    `json:"uniqueId"`
	CreateTimeI time.Time `json:"createTimeISO"`
}

// AnalyticsPoller long-polls the scraper for a published short's metrics,
// upserts its comments, and stamps the latest numbers on the short.
type AnalyticsPoller struct {
	log          *logger.Logger
	deps         *Deps
	postActor    string
	commentActor string
}

func NewAnalyticsPoller(deps *Deps) *AnalyticsPoller {
	log := deps.Log.With("stage", "AnalyticsPoller")
	return &AnalyticsPoller{
		log:          log,
		deps:         deps,
		postActor:    envutil.GetEnv("APIFY_TIKTOK_ACTOR", "clockworks~tiktok-scraper", log),
		commentActor: envutil.GetEnv("APIFY_TIKTOK_COMMENT_ACTOR", "clockworks~tiktok-comments-scraper", log),
	}
}

func (s *AnalyticsPoller) Run(ctx context.Context, sc *pipeline.StageContext) error {
	short := sc.Short
	if short == nil {
		return fmt.Errorf("analytics poller requires a short")
	}
	if short.TikTokLink == "" {
		return fmt.Errorf("short %s has no tiktok link", short.ID)
	}

	s.deps.progress(ctx, sc, 10, "Scraping post metrics")
	post, err := s.scrapePost(ctx, short.TikTokLink)
	if err != nil {
		return err
	}

	if post.CommentCount > 1 {
		s.deps.progress(ctx, sc, 50, "Scraping comments")
		if err := s.scrapeComments(ctx, short, post.CommentCount); err != nil {
			// Comments are supplementary; the metric record still lands.
			s.log.Warn("Comment scrape failed", "short_id", short.ID, "error", err)
		}
	}

	s.deps.progress(ctx, sc, 80, "Recording metrics")
	rec := &types.AnalyticsRecord{
		ID:           uuid.NewString(),
		ShortID:      short.ID,
		UID:          short.UID,
		TikTokLink:   short.TikTokLink,
		Views:        post.PlayCount,
		Likes:        post.DiggCount,
		Shares:       post.ShareCount,
		CommentCount: post.CommentCount,
		PolledAt:     time.Now(),
	}
	if err := s.deps.Analytics.CreateRecord(ctx, nil, rec); err != nil {
		return fmt.Errorf("record analytics: %w", err)
	}
	if err := s.deps.Shorts.UpdateFields(ctx, nil, short.ID, map[string]any{
		"latest_views":    post.PlayCount,
		"latest_likes":    post.DiggCount,
		"latest_shares":   post.ShareCount,
		"latest_comments": post.CommentCount,
	}); err != nil {
		return fmt.Errorf("persist latest metrics: %w", err)
	}
	s.deps.progress(ctx, sc, 95, "Analytics recorded")
	return nil
}

func (s *AnalyticsPoller) scrapePost(ctx context.Context, link string) (*tiktokPost, error) {
	input := map[string]any{"postURLs": []string{link}, "resultsPerPage": 1}
	runID, err := s.deps.Apify.StartActor(ctx, s.postActor, input)
	if err != nil {
		return nil, fmt.Errorf("start post scraper: %w", err)
	}
	run, err := s.deps.Apify.WaitForRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("wait for post scraper: %w", err)
	}
	if run.Status != apify.RunStatusSucceeded {
		return nil, fmt.Errorf("post scraper run %s ended %s", runID, run.Status)
	}
	var posts []tiktokPost
	if err := s.deps.Apify.DatasetItems(ctx, run.DefaultDatasetID, 1, &posts); err != nil {
		return nil, fmt.Errorf("fetch post dataset: %w", err)
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("post scraper returned no items for %s", link)
	}
	return &posts[0], nil
}

func (s *AnalyticsPoller) scrapeComments(ctx context.Context, short *types.Short, count int) error {
	input := map[string]any{"postURLs": []string{short.TikTokLink}, "commentsPerPost": count}
	runID, err := s.deps.Apify.StartActor(ctx, s.commentActor, input)
	if err != nil {
		return fmt.Errorf("start comment scraper: %w", err)
	}
	run, err := s.deps.Apify.WaitForRun(ctx, runID)
	if err != nil {
		return fmt.Errorf("wait for comment scraper: %w", err)
	}
	if run.Status != apify.RunStatusSucceeded {
		return fmt.Errorf("comment scraper run %s ended %s", runID, run.Status)
	}
	var comments []tiktokComment
	if err := s.deps.Apify.DatasetItems(ctx, run.DefaultDatasetID, count, &comments); err != nil {
		return fmt.Errorf("fetch comment dataset: %w", err)
	}
	now := time.Now()
	for _, c := range comments {
		if c.CID == "" {
			continue
		}
		comment := &types.Comment{
			ID:        c.CID,
			ShortID:   short.ID,
			Author:    c.UniqueID,
			Text:      c.Text,
			Likes:     c.DiggCount,
			PostedAt:  c.CreateTimeI,
			FetchedAt: now,
		}
		if err := s.deps.Analytics.UpsertComment(ctx, nil, comment); err != nil {
			s.log.Warn("Comment upsert failed", "comment_id", c.CID, "error", err)
		}
	}
	return nil
}
