package domain

import "time"

// Verdict is the acceptance decision computed once per article text.
type Verdict struct {
	Subject    string
	Action     string
	Accepted   bool
	AcceptedBy string
	Gangs      []string
}

// RawFields holds what a source extracted from one article page, before classification.
type RawFields struct {
	Title        string
	Subtitle     string
	Body         string
	Author       string
	PublishedRaw string
	ModifiedRaw  string
	Section      string
	Tags         []string
}

// Article is the record handed to persistence. Dates use the dd-mm-yyyy layout.
type Article struct {
	ID              string
	URL             string
	Title           string
	Subtitle        string
	Body            string
	Author          string
	Newspaper       string
	Keyword         string
	Section         string
	Tags            []string
	PublicationDate string
	LastUpdate      string
	AcquisitionDate string
	Verdict         Verdict
	EventID         int64
	AcquiredAt      time.Time
}

// Accepted reports the classifier decision for the article.
func (a Article) Accepted() bool {
	return a.Verdict.Accepted
}

// Outcome enumerates what happened to one fetched article.
type Outcome string

const (
	OutcomeAccepted  Outcome = "accepted"
	OutcomeRejected  Outcome = "rejected"
	OutcomePaywalled Outcome = "paywalled"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)
