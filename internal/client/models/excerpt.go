package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	MinExcerptLength = 20
	MaxExcerptLength = 1200
)

// Excerpt is a highlighted part of a reflection shared into a table.
type Excerpt struct {
	ReflectionID uuid.UUID
	TableID      uuid.UUID
	Text         string `validate:"min=20,max=1200"`
	Question     string `validate:"max=500"`
}

// Normalize trims the excerpt and question.
func (e Excerpt) Normalize() Excerpt {
	e.Text = strings.TrimSpace(e.Text)
	e.Question = strings.TrimSpace(e.Question)
	return e
}

// CardTitle is "From my Garden · <date>".
func (e Excerpt) CardTitle(now time.Time) string {
	return "From my Garden · " + now.Format("Jan 2, 2006")
}

// CardBody prefixes the excerpt with the optional question.
func (e Excerpt) CardBody() string {
	if e.Question == "" {
		return e.Text
	}
	return fmt.Sprintf("Question: %s\n\n%s", e.Question, e.Text)
}
