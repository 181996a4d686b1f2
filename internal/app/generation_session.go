// internal/app/generation_session.go
package app

import (
	"encoding/json"
	"time"

	domainAI "ai_post_scheduler/internal/domain/ai"
)

type aiCall struct {
	Type      string           `json:"type"`
	Prompt    string           `json:"prompt"`
	Response  string           `json:"response,omitempty"`
	Error     string           `json:"error,omitempty"`
	Options   domainAI.Options `json:"options"`
	Timestamp time.Time        `json:"timestamp"`
}

type sessionError struct {
	Type    string    `json:"type"`
	Message string    `json:"message"`
	At      time.Time `json:"timestamp"`
}

// generationSession tracks every AI call made for one post. It is stored
// as the history entry's generation log.
type generationSession struct {
	TemplateID   int64          `json:"template_id"`
	TemplateName string         `json:"template_name"`
	VoiceID      int64          `json:"voice_id,omitempty"`
	Topic        string         `json:"topic,omitempty"`
	StartedAt    time.Time      `json:"started_at"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	Duration     float64        `json:"duration_seconds"`
	AICalls      []aiCall       `json:"ai_calls"`
	Errors       []sessionError `json:"errors"`
	Success      bool           `json:"success"`
	PostID       int64          `json:"post_id,omitempty"`
}

func (s *generationSession) logCall(kind, prompt, response string, opts domainAI.Options, err error) {
	call := aiCall{
		Type:      kind,
		Prompt:    prompt,
		Response:  response,
		Options:   opts,
		Timestamp: time.Now(),
	}
	if err != nil {
		call.Error = err.Error()
		s.addError(kind, err)
	}
	s.AICalls = append(s.AICalls, call)
}

func (s *generationSession) addError(kind string, err error) {
	s.Errors = append(s.Errors, sessionError{Type: kind, Message: err.Error(), At: time.Now()})
}

func (s *generationSession) complete(success bool, postID int64) {
	now := time.Now()
	s.CompletedAt = &now
	s.Duration = now.Sub(s.StartedAt).Seconds()
	s.Success = success
	s.PostID = postID
}

func (s *generationSession) JSON() string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}
