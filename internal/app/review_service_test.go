package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/post"
	idb "ai_post_scheduler/internal/infra/database"
	"ai_post_scheduler/internal/infra/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewServicePublishAndDiscard(t *testing.T) {
	posts := newFakePosts()
	events := &fakeDispatcher{}
	svc := NewReviewService(posts, events, logger.Discard())
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	first := &post.Post{Title: "One", Status: post.StatusDraft}
	second := &post.Post{Title: "Two", Status: post.StatusDraft}
	require.NoError(t, posts.Create(ctx, first))
	require.NoError(t, posts.Create(ctx, second))

	drafts, err := svc.Drafts(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, drafts, 2)

	p, err := svc.Publish(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, post.StatusPublish, p.Status)
	assert.Equal(t, testNow, p.PublishedAt.Time)

	p, err = svc.Discard(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, post.StatusTrash, p.Status)

	_, err = svc.Publish(ctx, first.ID)
	assert.ErrorIs(t, err, ErrPostNotDraft)
	_, err = svc.Discard(ctx, 42)
	assert.ErrorIs(t, err, idb.ErrPostNotFound)

	assert.Equal(t, []history.EventType{history.EventPostPublished, history.EventPostDiscarded}, events.types())
}

func TestReviewServiceConcurrentResolutionsApplyOnce(t *testing.T) {
	posts := newFakePosts()
	events := &fakeDispatcher{}
	svc := NewReviewService(posts, events, logger.Discard())
	ctx := context.Background()

	p := &post.Post{Title: "Contested", Status: post.StatusDraft}
	require.NoError(t, posts.Create(ctx, p))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, errs[i] = svc.Publish(ctx, p.ID)
			} else {
				_, errs[i] = svc.Discard(ctx, p.ID)
			}
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrPostNotDraft)
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, events.types(), 1)
}
