package storage_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NewsScanner/internal/infrastructure/storage"
)

func TestRedisHistory(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	history := storage.NewRedisHistory(client)
	ctx := context.Background()

	require.NoError(t, history.RecordSeenURL(ctx, "https://g1.globo.com/a", "g1"))
	require.NoError(t, history.RecordSeenURL(ctx, "https://g1.globo.com/a", "g1"))
	require.NoError(t, history.RecordSeenURL(ctx, "https://g1.globo.com/b", "g1"))
	require.NoError(t, history.RecordSeenURL(ctx, "https://www.cartacapital.com.br/x", "cartacapital"))

	urls, err := history.SeenURLs(ctx, "g1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://g1.globo.com/a", "https://g1.globo.com/b"}, urls)

	members, err := srv.Members("newsscanner:seen:cartacapital")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.cartacapital.com.br/x"}, members)
}

func TestConnectRedis_Unreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := storage.ConnectRedis(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
