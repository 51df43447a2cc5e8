package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/classifier"
	"NewsScanner/internal/domain"
)

type memoryStore struct {
	mu       sync.Mutex
	articles []domain.Article
	err      error
}

func (m *memoryStore) SaveArticle(_ context.Context, a domain.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.articles = append(m.articles, a)
	return nil
}

func newTestPipeline(t *testing.T, store *memoryStore) *Pipeline {
	t.Helper()

	c, err := classifier.NewDefault()
	require.NoError(t, err)

	loc, err := time.LoadLocation("America/Sao_Paulo")
	require.NoError(t, err)

	return NewPipeline(PipelineDeps{
		Classifier: c,
		Store:      store,
		Location:   loc,
		Now:        func() time.Time { return time.Date(2025, time.March, 2, 1, 30, 0, 0, time.UTC) },
	})
}

func TestPipelineProcess_Accepted(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	p := newTestPipeline(t, store)

	article, err := p.Process(context.Background(), Input{
		URL:     "https://diplomatique.org.br/faccoes/",
		Source:  "diplomatique",
		Keyword: "facção",
		Raw: domain.RawFields{
			Title:        "  Facções no Norte  ",
			Body:         "A facção PCC articulada com tráfico de drogas",
			Author:       "Redação",
			PublishedRaw: "2024-11-05T22:10:00-03:00",
		},
	})
	require.NoError(t, err)

	assert.True(t, article.Accepted())
	assert.Equal(t, `\bpcc\b - trafico de drogas`, article.Verdict.AcceptedBy)
	assert.Equal(t, []string{"pcc"}, article.Verdict.Gangs)
	assert.Equal(t, "Facções no Norte", article.Title)
	assert.Equal(t, "05-11-2024", article.PublicationDate)
	assert.Equal(t, "01-03-2025", article.AcquisitionDate, "acquisition date is local to the configured zone")
	assert.Equal(t, "diplomatique", article.Newspaper)
	assert.NotEmpty(t, article.ID)
	require.Len(t, store.articles, 1)
}

func TestPipelineProcess_StableID(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &memoryStore{})
	in := Input{URL: "https://x/a", Raw: domain.RawFields{Body: "texto"}}

	first, err := p.Process(context.Background(), in)
	require.NoError(t, err)
	second, err := p.Process(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestPipelineProcess_RejectedStillStored(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	p := newTestPipeline(t, store)

	article, err := p.Process(context.Background(), Input{
		URL: "https://x/praca",
		Raw: domain.RawFields{Body: "Prefeitura inaugura praça", PublishedRaw: "ontem à tarde"},
	})
	require.NoError(t, err)
	assert.False(t, article.Accepted())
	assert.Equal(t, "ontem à tarde", article.PublicationDate, "unparseable dates are kept raw")
	assert.Len(t, store.articles, 1)
}

func TestPipelineProcess_EmptyBody(t *testing.T) {
	t.Parallel()

	store := &memoryStore{}
	p := newTestPipeline(t, store)

	_, err := p.Process(context.Background(), Input{URL: "https://x/empty", Raw: domain.RawFields{Body: "  "}})
	require.ErrorIs(t, err, domain.ErrExtraction)
	assert.Empty(t, store.articles)
}

func TestPipelineProcess_StoreErrors(t *testing.T) {
	t.Parallel()

	dup := newTestPipeline(t, &memoryStore{err: domain.ErrDuplicate})
	_, err := dup.Process(context.Background(), Input{URL: "https://x/a", Raw: domain.RawFields{Body: "texto"}})
	assert.NoError(t, err, "duplicates are an idempotent outcome")

	boom := errors.New("connection reset")
	failing := newTestPipeline(t, &memoryStore{err: boom})
	_, err = failing.Process(context.Background(), Input{URL: "https://x/a", Raw: domain.RawFields{Body: "texto"}})
	assert.ErrorIs(t, err, boom)
}

func TestFormatDate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want string
	}{
		{raw: "", want: ""},
		{raw: "2024-01-31T23:59:00-03:00", want: "31-01-2024"},
		{raw: "2024-01-31T23:59:00.000Z", want: "31-01-2024"},
		{raw: "2024-02-10", want: "10-02-2024"},
		{raw: "10/02/2024 14h30", want: "10-02-2024"},
		{raw: "Mon, 02 Jan 2006 15:04:05 -0700", want: "02-01-2006"},
		{raw: " há 3 horas ", want: "há 3 horas"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDate(tt.raw, time.UTC), tt.raw)
	}
}
