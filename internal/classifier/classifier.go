// Package classifier decides whether article text is about organized crime activity.
//
// An article is accepted when it names a subject (a gang or an organized crime
// term) and an action (drugs or armed interactions). All matching runs on
// normalized text so tables can be written without accents.
package classifier

import (
	"NewsScanner/internal/domain"
	"NewsScanner/internal/textnorm"
)

// Classifier is safe for concurrent use; its tables are read-only.
type Classifier struct {
	subject []Pattern
	action  []Pattern
	gangs   []Pattern
}

// New builds a classifier over compiled tables.
func New(tables *Tables) *Classifier {
	return &Classifier{
		subject: tables.Subject(),
		action:  tables.Action(),
		gangs:   tables.Gangs(),
	}
}

// NewDefault compiles the built-in tables.
func NewDefault() (*Classifier, error) {
	tables, err := Compile(DefaultSpec())
	if err != nil {
		return nil, err
	}
	return New(tables), nil
}

// MatchesAny returns the first pattern, in table order, that matches the normalized text.
func MatchesAny(text string, patterns []Pattern) (string, bool) {
	return firstMatch(textnorm.Normalize(text), patterns)
}

func firstMatch(normalized string, patterns []Pattern) (string, bool) {
	for _, p := range patterns {
		if p.expr.MatchString(normalized) {
			return p.Source, true
		}
	}
	return "", false
}

// Classify computes the verdict for one article body.
func (c *Classifier) Classify(text string) domain.Verdict {
	if text == "" {
		return domain.Verdict{}
	}

	normalized := textnorm.Normalize(text)
	subject, hasSubject := firstMatch(normalized, c.subject)
	action, hasAction := firstMatch(normalized, c.action)

	verdict := domain.Verdict{
		Subject: subject,
		Action:  action,
		Gangs:   c.extract(normalized),
	}
	if hasSubject && hasAction {
		verdict.Accepted = true
		verdict.AcceptedBy = subject + " - " + action
	}
	return verdict
}

// ExtractGangMentions returns every GANGS match, grouped by pattern in declaration order.
// Repeated occurrences are kept.
func (c *Classifier) ExtractGangMentions(text string) []string {
	if text == "" {
		return nil
	}
	return c.extract(textnorm.Normalize(text))
}

func (c *Classifier) extract(normalized string) []string {
	var found []string
	for _, p := range c.gangs {
		found = append(found, p.expr.FindAllString(normalized, -1)...)
	}
	return found
}
