package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/ports"
)

// Classifier computes a verdict for article text.
type Classifier interface {
	Classify(text string) domain.Verdict
}

// PipelineDeps wires the classifier and persistence into the article pipeline.
type PipelineDeps struct {
	Classifier Classifier
	Store      ports.ArticleStore
	Location   *time.Location
	Now        func() time.Time
	Logger     *slog.Logger
}

// Pipeline turns extracted fields into a classified, persisted article.
type Pipeline struct {
	classifier Classifier
	store      ports.ArticleStore
	location   *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// Input is one extracted article together with its crawl context.
type Input struct {
	URL     string
	Source  string
	Keyword string
	Raw     domain.RawFields
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		classifier: deps.Classifier,
		store:      deps.Store,
		location:   deps.Location,
		now:        deps.Now,
		logger:     deps.Logger,
	}
	if p.location == nil {
		p.location = time.UTC
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// Process classifies the article body and hands the record to the store.
// Text without a body is an extraction error and is never classified.
func (p *Pipeline) Process(ctx context.Context, in Input) (domain.Article, error) {
	body := strings.TrimSpace(in.Raw.Body)
	if body == "" {
		return domain.Article{}, fmt.Errorf("%w: empty body for %s", domain.ErrExtraction, in.URL)
	}

	verdict := p.classifier.Classify(body)
	acquired := p.now().In(p.location)

	article := domain.Article{
		ID:              uuid.NewSHA1(uuid.NameSpaceURL, []byte(in.URL)).String(),
		URL:             in.URL,
		Title:           strings.TrimSpace(in.Raw.Title),
		Subtitle:        strings.TrimSpace(in.Raw.Subtitle),
		Body:            body,
		Author:          strings.TrimSpace(in.Raw.Author),
		Newspaper:       in.Source,
		Keyword:         in.Keyword,
		Section:         in.Raw.Section,
		Tags:            in.Raw.Tags,
		PublicationDate: FormatDate(in.Raw.PublishedRaw, p.location),
		LastUpdate:      FormatDate(in.Raw.ModifiedRaw, p.location),
		AcquisitionDate: acquired.Format(DateLayout),
		AcquiredAt:      acquired,
		Verdict:         verdict,
	}

	if p.store == nil {
		return article, nil
	}

	if err := p.store.SaveArticle(ctx, article); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			p.logger.Debug("article already stored", "url", in.URL)
			return article, nil
		}
		return article, fmt.Errorf("persist article %s: %w", in.URL, err)
	}

	return article, nil
}
