package mcp

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"ai_post_scheduler/internal/app"
	"ai_post_scheduler/internal/domain/history"
	"ai_post_scheduler/internal/domain/interval"
	"ai_post_scheduler/internal/domain/post"
	"ai_post_scheduler/internal/domain/schedule"
	"ai_post_scheduler/internal/domain/template"
	"ai_post_scheduler/internal/domain/voice"
	iai "ai_post_scheduler/internal/infra/ai"
	"ai_post_scheduler/internal/infra/config"
	"ai_post_scheduler/internal/infra/scheduler"
)

// CronHook is the only background job the service runs.
const CronHook = "generate_scheduled_posts"

const maxPreviewRuns = 50

type TemplateStore interface {
	GetByID(ctx context.Context, id int64) (*template.Template, error)
	List(ctx context.Context, activeOnly bool) ([]*template.Template, error)
}

type VoiceStore interface {
	GetByID(ctx context.Context, id int64) (*voice.Voice, error)
}

type ScheduleQueries interface {
	Get(ctx context.Context, id int64) (*schedule.Schedule, error)
	List(ctx context.Context, activeOnly bool) ([]*schedule.Due, error)
	Preview(f interval.Frequency, from *time.Time, rawRules []byte, count int) ([]time.Time, error)
}

type HistoryStore interface {
	List(ctx context.Context, f history.Filter) (*history.Page, error)
}

type CronController interface {
	Status() scheduler.Status
	RunOnce(ctx context.Context) (app.ProcessSummary, error)
}

type BreakerController interface {
	Status() iai.BreakerStatus
	Reset()
}

type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the services the tools operate on.
type Deps struct {
	Config    *config.AppConfig
	Location  *time.Location
	Templates TemplateStore
	Voices    VoiceStore
	Schedules ScheduleQueries
	Runner    app.ScheduleRunner
	Generator app.PostGenerator
	History   HistoryStore
	Cron      CronController
	Breaker   BreakerController
	DB        Pinger
}

// Tool is a named operation callable over JSON-RPC.
type Tool struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Parameters  map[string]ParamDef `json:"parameters"`

	handler func(ctx context.Context, p Params) (interface{}, error)
}

func (s *Server) registerTools() map[string]*Tool {
	tools := []*Tool{
		{
			Name:        "list_tools",
			Description: "List all available tools",
			handler:     s.listTools,
		},
		{
			Name:        "get_plugin_info",
			Description: "Get service version and generation settings",
			handler:     s.pluginInfo,
		},
		{
			Name:        "system_status",
			Description: "Get system status information",
			Parameters: map[string]ParamDef{
				"section": {Type: "string", Description: "Section: all, environment, database, scheduler, ai", Default: "all"},
			},
			handler: s.systemStatus,
		},
		{
			Name:        "list_templates",
			Description: "List post templates",
			Parameters: map[string]ParamDef{
				"active_only": {Type: "boolean", Description: "Only return active templates", Default: false},
				"search":      {Type: "string", Description: "Filter templates by name"},
			},
			handler: s.listTemplates,
		},
		{
			Name:        "list_schedules",
			Description: "List schedules with their next run",
			Parameters: map[string]ParamDef{
				"active_only": {Type: "boolean", Description: "Only return active schedules", Default: false},
			},
			handler: s.listSchedules,
		},
		{
			Name:        "calculate_next_run",
			Description: "Calculate upcoming runs of a frequency",
			Parameters: map[string]ParamDef{
				"frequency": {Type: "string", Description: "Frequency identifier, e.g. daily or every_monday", Required: true},
				"from":      {Type: "string", Description: "Base time (RFC 3339 or YYYY-MM-DD HH:MM:SS), defaults to now"},
				"count":     {Type: "integer", Description: "Number of runs to return", Default: float64(1)},
				"rules":     {Type: "object", Description: "Rules for the custom frequency"},
			},
			handler: s.calculateNextRun,
		},
		{
			Name:        "generate_post",
			Description: "Generate a post from a template or a schedule",
			Parameters: map[string]ParamDef{
				"template_id": {Type: "integer", Description: "Template to generate from"},
				"schedule_id": {Type: "integer", Description: "Schedule whose template and topic are used"},
				"topic":       {Type: "string", Description: "Topic for the {{topic}} variable"},
				"overrides":   {Type: "object", Description: "post_status, post_author, category, tags"},
			},
			handler: s.generatePost,
		},
		{
			Name:        "run_schedule",
			Description: "Run a schedule immediately without changing its timetable",
			Parameters: map[string]ParamDef{
				"schedule_id": {Type: "integer", Description: "Schedule to run", Required: true},
			},
			handler: s.runSchedule,
		},
		{
			Name:        "get_generation_history",
			Description: "Get generation history with paging and filters",
			Parameters: map[string]ParamDef{
				"per_page":    {Type: "integer", Description: "Items per page", Default: float64(history.DefaultPerPage)},
				"page":        {Type: "integer", Description: "Page number", Default: float64(1)},
				"status":      {Type: "string", Description: "processing, completed or failed"},
				"template_id": {Type: "integer", Description: "Filter by template"},
				"search":      {Type: "string", Description: "Search titles and prompts"},
			},
			handler: s.generationHistory,
		},
		{
			Name:        "get_cron_status",
			Description: "Get the status of the schedule poller",
			handler:     s.cronStatus,
		},
		{
			Name:        "trigger_cron",
			Description: "Run a background job now",
			Parameters: map[string]ParamDef{
				"hook": {Type: "string", Description: "Job name: " + CronHook, Required: true},
			},
			handler: s.triggerCron,
		},
		{
			Name:        "circuit_breaker_status",
			Description: "Get the AI circuit breaker state",
			handler:     s.breakerStatus,
		},
		{
			Name:        "reset_circuit_breaker",
			Description: "Close the AI circuit breaker",
			handler:     s.resetBreaker,
		},
	}

	out := make(map[string]*Tool, len(tools))
	for _, t := range tools {
		if t.Parameters == nil {
			t.Parameters = map[string]ParamDef{}
		}
		out[t.Name] = t
	}
	return out
}

func (s *Server) listTools(context.Context, Params) (interface{}, error) {
	list := make(map[string]*Tool, len(s.tools))
	for name, t := range s.tools {
		list[name] = t
	}
	return map[string]interface{}{
		"success": true,
		"version": Version,
		"tools":   list,
	}, nil
}

func (s *Server) pluginInfo(context.Context, Params) (interface{}, error) {
	info := map[string]interface{}{
		"name":       "AI Post Scheduler",
		"version":    Version,
		"go_version": runtime.Version(),
	}
	if cfg := s.deps.Config; cfg != nil {
		info["environment"] = cfg.Environment
		info["settings"] = map[string]interface{}{
			"default_post_status": cfg.Posts.DefaultStatus,
			"default_category":    cfg.Posts.DefaultCategory,
			"default_author":      cfg.Posts.DefaultAuthor,
			"log_level":           cfg.Log.Level,
			"retry_max_attempts":  cfg.Resilience.Retry.MaxAttempts,
			"ai_model":            cfg.AI.Model,
			"timezone":            cfg.Scheduler.Timezone,
		}
	}
	return map[string]interface{}{"success": true, "plugin": info}, nil
}

func (s *Server) systemStatus(ctx context.Context, p Params) (interface{}, error) {
	section := strings.ToLower(p.String("section"))
	valid := map[string]bool{"all": true, "environment": true, "database": true, "scheduler": true, "ai": true}
	if !valid[section] {
		return nil, invalidParams("Invalid section: " + section)
	}
	want := func(name string) bool { return section == "all" || section == name }

	status := map[string]interface{}{}
	if want("environment") {
		env := map[string]interface{}{
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"version":    Version,
		}
		if s.deps.Config != nil {
			env["environment"] = s.deps.Config.Environment
		}
		if s.deps.Location != nil {
			env["timezone"] = s.deps.Location.String()
		}
		status["environment"] = env
	}
	if want("database") {
		db := map[string]interface{}{"status": "unknown"}
		if s.deps.DB != nil {
			if err := s.deps.DB.PingContext(ctx); err != nil {
				db["status"] = "error"
				db["error"] = err.Error()
			} else {
				db["status"] = "ok"
			}
		}
		if s.deps.Config != nil {
			db["driver"] = s.deps.Config.Database.Driver
		}
		status["database"] = db
	}
	if want("scheduler") && s.deps.Cron != nil {
		status["scheduler"] = s.deps.Cron.Status()
	}
	if want("ai") {
		ai := map[string]interface{}{}
		if s.deps.Config != nil {
			ai["model"] = s.deps.Config.AI.Model
			ai["configured"] = s.deps.Config.AI.APIKey != ""
		}
		if s.deps.Breaker != nil {
			ai["circuit_breaker"] = s.deps.Breaker.Status()
		}
		status["ai"] = ai
	}
	return map[string]interface{}{"success": true, "status": status}, nil
}

func (s *Server) listTemplates(ctx context.Context, p Params) (interface{}, error) {
	list, err := s.deps.Templates.List(ctx, p.Bool("active_only"))
	if err != nil {
		return nil, err
	}
	if search := strings.ToLower(p.String("search")); search != "" {
		filtered := make([]*template.Template, 0, len(list))
		for _, t := range list {
			if strings.Contains(strings.ToLower(t.Name), search) {
				filtered = append(filtered, t)
			}
		}
		list = filtered
	}
	return map[string]interface{}{
		"success":   true,
		"templates": list,
		"count":     len(list),
	}, nil
}

type scheduleView struct {
	*schedule.Due
	FrequencyDisplay string     `json:"frequency_display"`
	LastRun          *time.Time `json:"last_run,omitempty"`
}

func (s *Server) listSchedules(ctx context.Context, p Params) (interface{}, error) {
	list, err := s.deps.Schedules.List(ctx, p.Bool("active_only"))
	if err != nil {
		return nil, err
	}
	views := make([]scheduleView, 0, len(list))
	for _, d := range list {
		v := scheduleView{Due: d, FrequencyDisplay: interval.Display(d.Frequency)}
		if d.LastRun.Valid {
			last := d.LastRun.Time
			v.LastRun = &last
		}
		views = append(views, v)
	}
	return map[string]interface{}{
		"success":   true,
		"schedules": views,
		"count":     len(views),
	}, nil
}

var fromLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func (s *Server) parseTime(v string) (time.Time, error) {
	loc := s.deps.Location
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range fromLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, invalidParams(fmt.Sprintf("Unrecognized time %q", v))
}

func (s *Server) calculateNextRun(_ context.Context, p Params) (interface{}, error) {
	freq := interval.Frequency(p.String("frequency"))
	count, err := p.Int("count")
	if err != nil {
		return nil, err
	}
	if count < 1 {
		count = 1
	}
	if count > maxPreviewRuns {
		count = maxPreviewRuns
	}

	var from *time.Time
	if raw := p.String("from"); raw != "" {
		t, err := s.parseTime(raw)
		if err != nil {
			return nil, err
		}
		from = &t
	}
	rules, err := p.RawJSON("rules")
	if err != nil {
		return nil, err
	}

	runs, err := s.deps.Schedules.Preview(freq, from, rules, int(count))
	if err != nil {
		if errors.Is(err, app.ErrInvalidFrequency) || errors.Is(err, app.ErrInvalidSchedule) {
			return nil, invalidParams(err.Error())
		}
		return nil, err
	}
	return map[string]interface{}{
		"success":   true,
		"frequency": freq,
		"display":   interval.Display(freq),
		"next_run":  runs[0],
		"runs":      runs,
	}, nil
}

func (s *Server) generatePost(ctx context.Context, p Params) (interface{}, error) {
	templateID, err := p.Int("template_id")
	if err != nil {
		return nil, err
	}
	scheduleID, err := p.Int("schedule_id")
	if err != nil {
		return nil, err
	}
	if templateID <= 0 && scheduleID <= 0 {
		return nil, invalidParams("Must provide template_id or schedule_id")
	}

	topic := p.String("topic")
	if scheduleID > 0 {
		sched, err := s.deps.Schedules.Get(ctx, scheduleID)
		if err != nil {
			return nil, fmt.Errorf("schedule not found: %w", err)
		}
		templateID = sched.TemplateID
		if topic == "" {
			topic = sched.Topic
		}
	}

	t, err := s.deps.Templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, fmt.Errorf("template not found: %w", err)
	}
	tmpl := *t
	if err := applyOverrides(&tmpl, p.Object("overrides")); err != nil {
		return nil, err
	}

	var v *voice.Voice
	if tmpl.VoiceID.Valid && s.deps.Voices != nil {
		if v, err = s.deps.Voices.GetByID(ctx, tmpl.VoiceID.Int64); err != nil {
			s.log.WithError(err).WithField("voice_id", tmpl.VoiceID.Int64).Warn("Generating without voice")
			v = nil
		}
	}

	result, err := s.deps.Generator.Generate(ctx, app.GenerateRequest{
		Template:   &tmpl,
		Voice:      v,
		Topic:      topic,
		ScheduleID: scheduleID,
		Type:       history.TypePostGeneration,
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success":      true,
		"post_id":      result.PostID,
		"history_uuid": result.HistoryUUID,
		"post":         result,
	}, nil
}

func applyOverrides(t *template.Template, o map[string]interface{}) error {
	if len(o) == 0 {
		return nil
	}
	p := Params(o)
	if p.Has("post_status") {
		status := p.String("post_status")
		switch post.Status(status) {
		case post.StatusDraft, post.StatusPublish, post.StatusPending:
			t.PostStatus = status
		default:
			return invalidParams("Invalid post_status override: " + status)
		}
	}
	if p.Has("post_author") {
		t.PostAuthor = p.String("post_author")
	}
	if p.Has("category") {
		t.PostCategory = p.String("category")
	}
	switch tags := o["tags"].(type) {
	case string:
		t.PostTags = tags
	case []interface{}:
		parts := make([]string, 0, len(tags))
		for _, tag := range tags {
			parts = append(parts, strings.TrimSpace(fmt.Sprint(tag)))
		}
		t.PostTags = strings.Join(parts, ",")
	}
	return nil
}

func (s *Server) runSchedule(ctx context.Context, p Params) (interface{}, error) {
	id, err := p.Int("schedule_id")
	if err != nil {
		return nil, err
	}
	if id <= 0 {
		return nil, invalidParams("schedule_id must be positive")
	}
	result, err := s.deps.Runner.RunNow(ctx, id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success":     true,
		"schedule_id": id,
		"post_id":     result.PostID,
		"post":        result,
	}, nil
}

func (s *Server) generationHistory(ctx context.Context, p Params) (interface{}, error) {
	perPage, err := p.Int("per_page")
	if err != nil {
		return nil, err
	}
	page, err := p.Int("page")
	if err != nil {
		return nil, err
	}
	templateID, err := p.Int("template_id")
	if err != nil {
		return nil, err
	}

	status := history.Status(p.String("status"))
	switch status {
	case "", history.StatusProcessing, history.StatusCompleted, history.StatusFailed:
	default:
		return nil, invalidParams("Invalid status: " + string(status))
	}

	result, err := s.deps.History.List(ctx, history.Filter{
		Page:       int(page),
		PerPage:    int(perPage),
		Status:     status,
		TemplateID: templateID,
		Search:     p.String("search"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success": true,
		"items":   result.Items,
		"pagination": map[string]interface{}{
			"total":        result.Total,
			"pages":        result.Pages,
			"current_page": result.Page,
			"per_page":     result.PerPage,
		},
	}, nil
}

var errCronUnavailable = errors.New("schedule poller is not running in this process")

func (s *Server) cronStatus(context.Context, Params) (interface{}, error) {
	if s.deps.Cron == nil {
		return nil, errCronUnavailable
	}
	st := s.deps.Cron.Status()
	return map[string]interface{}{
		"success": true,
		"crons": map[string]interface{}{
			CronHook: map[string]interface{}{
				"scheduled": st.Running,
				"next_run":  st.NextPoll,
				"last_run":  st.LastPoll,
				"spec":      st.Spec,
				"summary":   st.Last,
				"error":     st.LastErr,
			},
		},
	}, nil
}

func (s *Server) triggerCron(ctx context.Context, p Params) (interface{}, error) {
	hook := p.String("hook")
	if hook != CronHook {
		return nil, fmt.Errorf("invalid cron hook: %s", hook)
	}
	if s.deps.Cron == nil {
		return nil, errCronUnavailable
	}
	summary, err := s.deps.Cron.RunOnce(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"success": true,
		"hook":    hook,
		"summary": summary,
		"message": fmt.Sprintf("Cron hook '%s' triggered successfully", hook),
	}, nil
}

var errBreakerUnavailable = errors.New("circuit breaker is not configured")

func (s *Server) breakerStatus(context.Context, Params) (interface{}, error) {
	if s.deps.Breaker == nil {
		return nil, errBreakerUnavailable
	}
	return map[string]interface{}{
		"success":         true,
		"circuit_breaker": s.deps.Breaker.Status(),
	}, nil
}

func (s *Server) resetBreaker(context.Context, Params) (interface{}, error) {
	if s.deps.Breaker == nil {
		return nil, errBreakerUnavailable
	}
	s.deps.Breaker.Reset()
	return map[string]interface{}{
		"success":         true,
		"message":         "Circuit breaker reset",
		"circuit_breaker": s.deps.Breaker.Status(),
	}, nil
}
