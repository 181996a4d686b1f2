// internal/app/review_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/post"
	"ai_post_scheduler/internal/infra/events"

	"github.com/sirupsen/logrus"
)

var ErrPostNotDraft = fmt.Errorf("post is not awaiting review")

// ReviewService publishes or discards generated drafts.
type ReviewService struct {
	posts  post.Repository
	events EventDispatcher
	log    *logrus.Entry
	now    func() time.Time
}

func NewReviewService(posts post.Repository, dispatcher EventDispatcher, log *logrus.Entry) *ReviewService {
	return &ReviewService{posts: posts, events: dispatcher, log: log, now: time.Now}
}

// Drafts lists posts waiting for review, newest first.
func (s *ReviewService) Drafts(ctx context.Context, limit int) ([]*post.Post, error) {
	return s.posts.List(ctx, post.StatusDraft, limit)
}

func (s *ReviewService) Publish(ctx context.Context, postID int64) (*post.Post, error) {
	return s.transition(ctx, postID, post.StatusPublish, history.EventPostPublished, "Post %q published")
}

func (s *ReviewService) Discard(ctx context.Context, postID int64) (*post.Post, error) {
	return s.transition(ctx, postID, post.StatusTrash, history.EventPostDiscarded, "Post %q discarded")
}

func (s *ReviewService) transition(ctx context.Context, postID int64, to post.Status, event history.EventType, msg string) (*post.Post, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.Status != post.StatusDraft && p.Status != post.StatusPending {
		return nil, ErrPostNotDraft
	}
	now := s.now()
	ok, err := s.posts.ResolveDraft(ctx, postID, to, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update post status: %w", err)
	}
	if !ok {
		// resolved concurrently
		return nil, ErrPostNotDraft
	}
	p.Status = to
	if to == post.StatusPublish {
		p.PublishedAt.Time, p.PublishedAt.Valid = now, true
	}

	s.log.WithFields(logrus.Fields{"post_id": postID, "status": to}).Info("Post reviewed")
	s.events.Dispatch(ctx, events.Event{
		Type:       event,
		Status:     history.EventStatusSuccess,
		Message:    fmt.Sprintf(msg, p.Title),
		TemplateID: p.TemplateID,
		ScheduleID: p.ScheduleID.Int64,
		PostID:     p.ID,
	})
	return p, nil
}
