// internal/app/template_processor.go
package app

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
	"time"

	"ai_post_scheduler/internal/infra/config"
)

var (
	ErrUnclosedBraces  = fmt.Errorf("template has unclosed variable braces")
	ErrUnknownVariable = fmt.Errorf("unknown template variable")
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// variableNames is the order variables are listed in.
var variableNames = []string{
	"date", "year", "month", "day", "time",
	"site_name", "site_description", "random_number",
	"topic", "title",
}

// TemplateProcessor replaces {{variable}} placeholders in prompt templates.
type TemplateProcessor struct {
	site config.SiteConfig
	loc  *time.Location

	now    func() time.Time
	random func() int
}

func NewTemplateProcessor(site config.SiteConfig, loc *time.Location) *TemplateProcessor {
	if loc == nil {
		loc = time.Local
	}
	return &TemplateProcessor{
		site:   site,
		loc:    loc,
		now:    time.Now,
		random: func() int { return rand.Intn(1000) + 1 },
	}
}

// Variables returns the current value of every variable, keyed by name.
func (p *TemplateProcessor) Variables(topic string) map[string]string {
	now := p.now().In(p.loc)
	return map[string]string{
		"date":             now.Format("January 2, 2006"),
		"year":             now.Format("2006"),
		"month":            now.Format("January"),
		"day":              now.Format("Monday"),
		"time":             now.Format("15:04"),
		"site_name":        p.site.Name,
		"site_description": p.site.Description,
		"random_number":    strconv.Itoa(p.random()),
		"topic":            topic,
		"title":            topic,
	}
}

// Process substitutes known variables. Unknown placeholders are left as they are.
func (p *TemplateProcessor) Process(tmpl, topic string) string {
	if !strings.Contains(tmpl, "{{") {
		return tmpl
	}
	vars := p.Variables(topic)
	pairs := make([]string, 0, len(vars)*2)
	for _, name := range variableNames {
		pairs = append(pairs, "{{"+name+"}}", vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

func (p *TemplateProcessor) VariableNames() []string {
	return append([]string(nil), variableNames...)
}

// Validate checks that braces are balanced and every variable is known.
func (p *TemplateProcessor) Validate(tmpl string) error {
	if strings.Count(tmpl, "{{") != strings.Count(tmpl, "}}") {
		return ErrUnclosedBraces
	}
	for _, m := range variablePattern.FindAllStringSubmatch(tmpl, -1) {
		name := strings.TrimSpace(m[1])
		if !isVariable(name) {
			return fmt.Errorf("%w: {{%s}}, available: {{%s}}", ErrUnknownVariable, name, strings.Join(variableNames, "}}, {{"))
		}
	}
	return nil
}

func isVariable(name string) bool {
	for _, v := range variableNames {
		if v == name {
			return true
		}
	}
	return false
}
