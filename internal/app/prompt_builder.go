// internal/app/prompt_builder.go
package app

import (
	"strings"

	"ai_post_scheduler/internal/domain/template"
	"ai_post_scheduler/internal/domain/voice"
)

const (
	formattingSuffix = "\n\nOutput the response for use as a blog post with HTML tags, using <h2> for section titles, " +
		"<pre> tags for code samples. Be sure to end the post with a concise summary."
	defaultTitlePrefix = "Generate a compelling blog post title for the following topic. Return only the title, nothing else:\n\n"
	excerptPrefix      = "Write an excerpt for an article. Must be between 40 and 60 characters. " +
		"Write naturally as a human would. Output only the excerpt, no formatting.\n\n"
	excerptSuffix = "Create a compelling excerpt that captures the essence of the article while considering the context."
)

// PromptBuilder assembles the prompts sent to the AI for each part of a post.
type PromptBuilder struct {
	processor *TemplateProcessor
}

func NewPromptBuilder(p *TemplateProcessor) *PromptBuilder {
	return &PromptBuilder{processor: p}
}

// BaseContentPrompt is the processed template prompt, prefixed by the voice instructions.
func (b *PromptBuilder) BaseContentPrompt(t *template.Template, v *voice.Voice, topic string) string {
	prompt := b.processor.Process(t.PromptTemplate, topic)
	if v != nil && strings.TrimSpace(v.ContentInstructions) != "" {
		prompt = b.processor.Process(v.ContentInstructions, topic) + "\n\n" + prompt
	}
	return prompt
}

func (b *PromptBuilder) ContentPrompt(t *template.Template, v *voice.Voice, topic string) string {
	return b.BaseContentPrompt(t, v, topic) + formattingSuffix
}

// TitlePrompt uses the template title prompt when set, the base content prompt otherwise.
func (b *PromptBuilder) TitlePrompt(t *template.Template, v *voice.Voice, topic string) string {
	base := b.BaseContentPrompt(t, v, topic)
	if strings.TrimSpace(t.TitlePrompt) != "" {
		base = b.processor.Process(t.TitlePrompt, topic)
	}
	if v != nil && strings.TrimSpace(v.TitlePrompt) != "" {
		return b.processor.Process(v.TitlePrompt, topic) + "\n\n" + base
	}
	return defaultTitlePrefix + base
}

func (b *PromptBuilder) ExcerptPrompt(title, body string, v *voice.Voice, topic string) string {
	var sb strings.Builder
	sb.WriteString(excerptPrefix)
	if v != nil && strings.TrimSpace(v.ExcerptInstructions) != "" {
		sb.WriteString(b.processor.Process(v.ExcerptInstructions, topic))
		sb.WriteString("\n\n")
	}
	sb.WriteString("ARTICLE TITLE:\n" + title + "\n\n")
	sb.WriteString("ARTICLE BODY:\n" + body + "\n\n")
	sb.WriteString(excerptSuffix)
	return sb.String()
}
