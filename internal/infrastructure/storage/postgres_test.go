package storage_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/domain"
	"NewsScanner/internal/infrastructure/storage"
)

func newPostgresStore(t *testing.T) (*storage.PostgresStore, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	return storage.NewPostgresStore(sqlx.NewDb(mockDB, "postgres"), nil), mock
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestPostgresStore_SaveArticle(t *testing.T) {
	store, mock := newPostgresStore(t)

	args := anyArgs(18)
	args[1] = "https://g1.globo.com/a"
	args[15] = true
	args[16] = "comando vermelho - tiroteio"
	mock.ExpectExec(`INSERT INTO articles \(id,url,.+\) VALUES \(\$1,.+\$18\) ON CONFLICT \(url\) DO UPDATE SET .+ WHERE NOT articles.accepted AND EXCLUDED.accepted`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveArticle(context.Background(), sampleArticle("https://g1.globo.com/a", true)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveArticleConflict(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(anyArgs(18)...).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.SaveArticle(context.Background(), sampleArticle("https://g1.globo.com/a", false))
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveArticlePromotesRejected(t *testing.T) {
	store, mock := newPostgresStore(t)

	args := anyArgs(18)
	args[15] = true
	mock.ExpectExec(`ON CONFLICT \(url\) DO UPDATE SET keyword = EXCLUDED.keyword, .+ accepted = EXCLUDED.accepted,`).
		WithArgs(args...).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveArticle(context.Background(), sampleArticle("https://g1.globo.com/a", true)),
		"a previously rejected row updated by a recheck is not a duplicate")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AcceptedURLs(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectQuery(`SELECT url FROM articles WHERE newspaper = \$1 AND accepted = \$2`).
		WithArgs("g1", true).
		WillReturnRows(sqlmock.NewRows([]string{"url"}).AddRow("https://g1.globo.com/a"))

	urls, err := store.AcceptedURLs(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://g1.globo.com/a"}, urls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveArticleError(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(anyArgs(18)...).
		WillReturnError(errors.New("connection reset"))

	err := store.SaveArticle(context.Background(), sampleArticle("https://g1.globo.com/a", true))
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrDuplicate)
}

func TestPostgresStore_History(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec(`INSERT INTO visited_urls \(url,newspaper\) VALUES \(\$1,\$2\) ON CONFLICT DO NOTHING`).
		WithArgs("https://g1.globo.com/a", "g1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT url FROM visited_urls WHERE newspaper = \$1`).
		WithArgs("g1").
		WillReturnRows(sqlmock.NewRows([]string{"url"}).
			AddRow("https://g1.globo.com/a").
			AddRow("https://g1.globo.com/b"))

	ctx := context.Background()
	require.NoError(t, store.RecordSeenURL(ctx, "https://g1.globo.com/a", "g1"))

	urls, err := store.SeenURLs(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://g1.globo.com/a", "https://g1.globo.com/b"}, urls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	store, mock := newPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS articles").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
