package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewWithPool(mock, "mentions", "watermark")
	require.NoError(t, err)
	return store, mock
}

func TestNewWithPoolRejectsBadTableName(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "mentions; DROP TABLE mentions", "watermark")
	require.Error(t, err)
}

func TestAppendMentionsInsertsRows(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	m := monitor.Mention{
		ID:          "abc123",
		Source:      "GoogleNewsRSS",
		Title:       "Hashed backs new fund",
		URL:         "https://example.com/story/1",
		PublishedAt: now.Add(-time.Hour),
		FetchedAt:   now,
	}

	mock.ExpectExec("INSERT INTO mentions").
		WithArgs(m.ID, m.FetchedAt, m.PublishedAt, m.Source, m.Title, m.URL).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.AppendMentions(context.Background(), []monitor.Mention{m})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendMentionsRequiresID(t *testing.T) {
	t.Parallel()

	store, _ := newMockStore(t)
	err := store.AppendMentions(context.Background(), []monitor.Mention{{URL: "https://example.com"}})
	require.Error(t, err)
}

func TestLoadSeenIDs(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id FROM mentions").
		WithArgs(5000).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("a").AddRow("b"))

	seen, err := store.LoadSeenIDs(context.Background(), 5000)
	require.NoError(t, err)
	require.Len(t, seen, 2)
	_, ok := seen["a"]
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadWatermarkAbsent(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT since FROM watermark").
		WithArgs("default").
		WillReturnRows(pgxmock.NewRows([]string{"since"}))

	_, present, err := store.LoadWatermark(context.Background())
	require.NoError(t, err)
	require.False(t, present)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadWatermarkPresent(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	since := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT since FROM watermark").
		WithArgs("default").
		WillReturnRows(pgxmock.NewRows([]string{"since"}).AddRow(since))

	got, present, err := store.LoadWatermark(context.Background())
	require.NoError(t, err)
	require.True(t, present)
	require.True(t, got.Equal(since))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWatermarkUpserts(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	since := time.Unix(1700000000, 0).UTC()

	mock.ExpectExec("INSERT INTO watermark").
		WithArgs("default", since).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.StoreWatermark(context.Background(), since)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
