// Package storage holds the ArticleStore and HistoryStore adapters selected by output.mode.
package storage

import (
	"NewsScanner/internal/domain"
)

// articleRecord is the persisted shape shared by the JSON-lines and Mongo stores.
type articleRecord struct {
	IDEvent         int64    `json:"id_event,omitempty" bson:"id_event,omitempty"`
	ID              string   `json:"id" bson:"article_id"`
	URL             string   `json:"url" bson:"url"`
	Title           string   `json:"title" bson:"title"`
	Subtitle        string   `json:"subtitle" bson:"subtitle"`
	Body            string   `json:"body" bson:"body"`
	Author          string   `json:"author" bson:"author"`
	Newspaper       string   `json:"newspaper" bson:"newspaper"`
	Keyword         string   `json:"keyword" bson:"keyword"`
	Section         string   `json:"section,omitempty" bson:"section,omitempty"`
	Tags            []string `json:"tags,omitempty" bson:"tags,omitempty"`
	PublicationDate string   `json:"publication_date" bson:"publication_date"`
	LastUpdate      string   `json:"last_update" bson:"last_update"`
	AcquisitionDate string   `json:"acquisition_date" bson:"acquisition_date"`
	Subject         string   `json:"subject" bson:"subject"`
	Action          string   `json:"action" bson:"action"`
	AcceptedBy      string   `json:"accepted_by" bson:"accepted_by"`
	Gangs           []string `json:"gangs" bson:"gangs"`
}

// seenRecord is one entry of the fetch history.
type seenRecord struct {
	URL       string `json:"url" bson:"url"`
	Newspaper string `json:"newspaper" bson:"newspaper"`
}

func toRecord(a domain.Article) articleRecord {
	gangs := a.Verdict.Gangs
	if gangs == nil {
		gangs = []string{}
	}
	return articleRecord{
		IDEvent:         a.EventID,
		ID:              a.ID,
		URL:             a.URL,
		Title:           a.Title,
		Subtitle:        a.Subtitle,
		Body:            a.Body,
		Author:          a.Author,
		Newspaper:       a.Newspaper,
		Keyword:         a.Keyword,
		Section:         a.Section,
		Tags:            a.Tags,
		PublicationDate: a.PublicationDate,
		LastUpdate:      a.LastUpdate,
		AcquisitionDate: a.AcquisitionDate,
		Subject:         a.Verdict.Subject,
		Action:          a.Verdict.Action,
		AcceptedBy:      a.Verdict.AcceptedBy,
		Gangs:           gangs,
	}
}
