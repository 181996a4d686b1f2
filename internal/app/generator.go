// internal/app/generator.go
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	domainAI "ai_post_scheduler/internal/domain/ai"
	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/post"
	"ai_post_scheduler/internal/domain/template"
	"ai_post_scheduler/internal/domain/voice"
	"ai_post_scheduler/internal/infra/config"
	"ai_post_scheduler/internal/infra/events"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	titleMaxTokens   = 100
	excerptMaxTokens = 150
)

var ErrGenerationFailed = fmt.Errorf("post generation failed")

// EventDispatcher publishes domain events to listeners.
type EventDispatcher interface {
	Dispatch(ctx context.Context, e events.Event)
}

// ReviewNotifier is told about every post saved as a draft.
type ReviewNotifier interface {
	NotifyDraft(ctx context.Context, p *post.Post) error
}

// GenerateRequest describes a single post to generate.
type GenerateRequest struct {
	Template   *template.Template
	Voice      *voice.Voice
	Topic      string
	ScheduleID int64
	Type       history.Type
	Options    domainAI.Options
}

// GenerateResult is the outcome of a successful generation.
type GenerateResult struct {
	PostID      int64       `json:"post_id"`
	HistoryUUID string      `json:"history_uuid"`
	Title       string      `json:"title"`
	Status      post.Status `json:"status"`
}

// Generator turns a template into a stored post with AI generated content.
type Generator struct {
	ai       domainAI.Client
	builder  *PromptBuilder
	posts    post.Repository
	history  history.Repository
	events   EventDispatcher
	notifier ReviewNotifier
	defaults config.PostsConfig
	log      *logrus.Entry
	now      func() time.Time
}

func NewGenerator(
	client domainAI.Client,
	builder *PromptBuilder,
	posts post.Repository,
	hist history.Repository,
	dispatcher EventDispatcher,
	defaults config.PostsConfig,
	log *logrus.Entry,
) *Generator {
	return &Generator{
		ai:       client,
		builder:  builder,
		posts:    posts,
		history:  hist,
		events:   dispatcher,
		defaults: defaults,
		log:      log,
		now:      time.Now,
	}
}

// SetReviewNotifier registers the notifier for draft posts.
func (g *Generator) SetReviewNotifier(n ReviewNotifier) {
	g.notifier = n
}

// Generate runs the content, title and excerpt prompts and stores the post.
// Only a failed content call or a failed save aborts the generation.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	t := req.Template
	if req.Type == "" {
		req.Type = history.TypePostGeneration
	}
	log := g.log.WithFields(logrus.Fields{"template_id": t.ID, "topic": req.Topic})

	session := &generationSession{
		TemplateID:   t.ID,
		TemplateName: t.Name,
		Topic:        req.Topic,
		StartedAt:    g.now(),
		AICalls:      []aiCall{},
		Errors:       []sessionError{},
	}
	if req.Voice != nil {
		session.VoiceID = req.Voice.ID
	}

	entry := &history.Entry{
		UUID:       uuid.NewString(),
		Type:       req.Type,
		TemplateID: sql.NullInt64{Int64: t.ID, Valid: t.ID > 0},
		ScheduleID: sql.NullInt64{Int64: req.ScheduleID, Valid: req.ScheduleID > 0},
		Status:     history.StatusProcessing,
		Prompt:     t.PromptTemplate,
		CreatedAt:  g.now(),
	}
	if err := g.history.Create(ctx, entry); err != nil {
		// generation continues without a history record
		log.WithError(err).Error("Failed to create history entry")
		entry = nil
	}

	contentPrompt := g.builder.ContentPrompt(t, req.Voice, req.Topic)
	content, err := g.call(ctx, session, "content", contentPrompt, req.Options)
	if err != nil {
		g.fail(ctx, entry, session, req, err)
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	titleOpts := req.Options
	titleOpts.MaxTokens = titleMaxTokens
	title, err := g.call(ctx, session, "title", g.builder.TitlePrompt(t, req.Voice, req.Topic), titleOpts)
	title = CleanTitle(title)
	if err != nil || title == "" {
		title = "AI Generated Post - " + g.now().Format("2006-01-02 15:04:05")
	}
	content = CleanContent(content, title)

	excerptOpts := req.Options
	excerptOpts.MaxTokens = excerptMaxTokens
	base := g.builder.BaseContentPrompt(t, req.Voice, req.Topic)
	excerpt, err := g.call(ctx, session, "excerpt", g.builder.ExcerptPrompt(title, base, req.Voice, req.Topic), excerptOpts)
	if err != nil {
		excerpt = ""
	}
	excerpt = CleanExcerpt(excerpt)

	p := g.newPost(t, req, title, content, excerpt)
	if err := g.posts.Create(ctx, p); err != nil {
		if entry != nil {
			entry.GeneratedTitle = title
			entry.GeneratedContent = content
		}
		g.fail(ctx, entry, session, req, err)
		return nil, fmt.Errorf("%w: saving post: %w", ErrGenerationFailed, err)
	}

	session.complete(true, p.ID)
	historyUUID := ""
	if entry != nil {
		historyUUID = entry.UUID
		entry.Status = history.StatusCompleted
		entry.PostID = sql.NullInt64{Int64: p.ID, Valid: true}
		entry.GeneratedTitle = title
		entry.GeneratedContent = content
		entry.GenerationLog = session.JSON()
		entry.CompletedAt = sql.NullTime{Time: g.now(), Valid: true}
		if err := g.history.Update(ctx, entry); err != nil {
			log.WithError(err).Error("Failed to complete history entry")
		}
	}

	log.WithFields(logrus.Fields{"post_id": p.ID, "title": title}).Info("Post generated successfully")
	g.events.Dispatch(ctx, events.Event{
		Type:        history.EventPostGenerated,
		Status:      history.EventStatusSuccess,
		Message:     fmt.Sprintf("Post %q generated", title),
		HistoryUUID: historyUUID,
		ScheduleID:  req.ScheduleID,
		TemplateID:  t.ID,
		PostID:      p.ID,
		Context:     map[string]interface{}{"post_status": string(p.Status)},
	})

	if p.Status == post.StatusDraft && g.notifier != nil {
		if err := g.notifier.NotifyDraft(ctx, p); err != nil {
			log.WithError(err).Warn("Failed to send review notification")
		}
	}

	return &GenerateResult{PostID: p.ID, HistoryUUID: historyUUID, Title: title, Status: p.Status}, nil
}

func (g *Generator) call(ctx context.Context, s *generationSession, kind, prompt string, opts domainAI.Options) (string, error) {
	text, err := g.ai.GenerateText(ctx, prompt, opts)
	s.logCall(kind, prompt, text, opts, err)
	if err != nil {
		g.log.WithError(err).WithField("type", kind).Error("AI request failed")
		return "", err
	}
	g.log.WithFields(logrus.Fields{
		"type":            kind,
		"prompt_length":   len(prompt),
		"response_length": len(text),
	}).Debug("Content generated")
	return text, nil
}

func (g *Generator) fail(ctx context.Context, entry *history.Entry, s *generationSession, req GenerateRequest, cause error) {
	s.complete(false, 0)
	historyUUID := ""
	if entry != nil {
		historyUUID = entry.UUID
		entry.Status = history.StatusFailed
		entry.ErrorMessage = cause.Error()
		entry.GenerationLog = s.JSON()
		entry.CompletedAt = sql.NullTime{Time: g.now(), Valid: true}
		if err := g.history.Update(ctx, entry); err != nil {
			g.log.WithError(err).Error("Failed to record generation failure")
		}
	}
	g.events.Dispatch(ctx, events.Event{
		Type:        history.EventPostGenerationFailed,
		Status:      history.EventStatusFailed,
		Message:     "Post generation failed: " + cause.Error(),
		HistoryUUID: historyUUID,
		ScheduleID:  req.ScheduleID,
		TemplateID:  req.Template.ID,
	})
}

func (g *Generator) newPost(t *template.Template, req GenerateRequest, title, content, excerpt string) *post.Post {
	status := post.Status(t.PostStatus)
	if status == "" {
		status = post.Status(g.defaults.DefaultStatus)
	}
	if status == "" {
		status = post.StatusDraft
	}
	category := t.PostCategory
	if category == "" {
		category = g.defaults.DefaultCategory
	}
	author := t.PostAuthor
	if author == "" {
		author = g.defaults.DefaultAuthor
	}
	focus := req.Topic
	if focus == "" {
		focus = title
	}

	p := &post.Post{
		Title:        title,
		Slug:         Slugify(title),
		Content:      content,
		Excerpt:      excerpt,
		Status:       status,
		Category:     category,
		Tags:         t.PostTags,
		Author:       author,
		TemplateID:   t.ID,
		ScheduleID:   sql.NullInt64{Int64: req.ScheduleID, Valid: req.ScheduleID > 0},
		FocusKeyword: focus,
		CreatedAt:    g.now(),
	}
	if status == post.StatusPublish {
		p.PublishedAt = sql.NullTime{Time: p.CreatedAt, Valid: true}
	}
	return p
}
