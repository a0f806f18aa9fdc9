package store

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/askthws/harvester/internal/blob"
	"github.com/askthws/harvester/internal/harvest"
)

func TestNewWithPoolValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(nil, Config{}, nil, nil)
	require.Error(t, err)

	_, err = NewWithPool(mock, Config{PagesTable: "pages; DROP TABLE pages"}, nil, nil)
	require.Error(t, err)

	p, err := NewWithPool(mock, Config{}, nil, nil)
	require.NoError(t, err)
	require.Equal(t, "pages", p.pagesTable)
	require.Equal(t, "files", p.filesTable)
	require.Equal(t, int64(DefaultBlobThreshold), p.threshold)
}

func TestUpsertPage(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p, err := NewWithPool(mock, Config{}, nil, nil)
	require.NoError(t, err)

	fetched := time.Unix(1700000000, 0).UTC()
	contentDate := time.Date(2025, 4, 30, 18, 15, 0, 0, time.UTC)

	rec := &harvest.PageRecord{
		URL:         "https://www.thws.de/studium",
		Kind:        harvest.KindHTML,
		Title:       "Studium",
		Body:        "<p>Bewerbung und Zulassung</p>",
		Language:    "de",
		HTTPStatus:  200,
		ContentDate: &contentDate,
		FetchedAt:   fetched,
		Metadata:    map[string]string{"description": "Studienangebot"},
	}

	mock.ExpectExec("INSERT INTO pages").
		WithArgs(
			rec.URL,
			rec.Title,
			rec.Body,
			rec.Language,
			rec.HTTPStatus,
			rec.ContentDate,
			rec.FetchedAt,
			[]byte(`{"description":"Studienangebot"}`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, p.Upsert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertFileEmbedsSmallPayload(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	blobs := blob.NewMemoryStore()
	p, err := NewWithPool(mock, Config{}, blobs, nil)
	require.NoError(t, err)

	fetched := time.Unix(1700000000, 0).UTC()
	payload := bytes.Repeat([]byte("a"), 1024)

	rec := &harvest.PageRecord{
		URL:        "https://fiw.thws.de/fileadmin/handbuch.pdf",
		Kind:       harvest.KindPDF,
		Title:      "handbuch",
		RawContent: payload,
		Language:   "unknown",
		HTTPStatus: 200,
		FetchedAt:  fetched,
	}

	mock.ExpectExec("INSERT INTO files").
		WithArgs(
			rec.URL,
			"pdf",
			rec.Title,
			rec.Language,
			rec.HTTPStatus,
			rec.FetchedAt,
			int64(1024),
			payload,
			(*string)(nil),
			"",
			[]byte("{}"),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, p.Upsert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
	require.Equal(t, 0, blobs.Len(), "small payloads stay in the row")
}

func TestUpsertFileDivertsOversizedPayload(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	blobs := blob.NewMemoryStore()
	p, err := NewWithPool(mock, Config{BlobThreshold: 1024}, blobs, nil)
	require.NoError(t, err)

	fetched := time.Unix(1700000000, 0).UTC()
	payload := bytes.Repeat([]byte("b"), 4096)
	uri := "memory://fiw.thws.de/fileadmin_jahresbericht.pdf"

	rec := &harvest.PageRecord{
		URL:        "https://fiw.thws.de/fileadmin/jahresbericht.pdf",
		Kind:       harvest.KindPDF,
		Title:      "jahresbericht",
		RawContent: payload,
		Language:   "unknown",
		HTTPStatus: 200,
		FetchedAt:  fetched,
	}

	mock.ExpectExec("INSERT INTO files").
		WithArgs(
			rec.URL,
			"pdf",
			rec.Title,
			rec.Language,
			rec.HTTPStatus,
			rec.FetchedAt,
			int64(4096),
			[]byte(nil),
			&uri,
			"",
			[]byte("{}"),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, p.Upsert(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())

	stored, ok := blobs.Get("fiw.thws.de/fileadmin_jahresbericht.pdf")
	require.True(t, ok)
	require.Equal(t, payload, stored)
}

func TestUpsertRejectsUnsupportedKind(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p, err := NewWithPool(mock, Config{}, nil, nil)
	require.NoError(t, err)

	err = p.Upsert(context.Background(), &harvest.PageRecord{URL: "https://www.thws.de/x", Kind: harvest.KindUnknown})
	require.Error(t, err)

	err = p.Upsert(context.Background(), &harvest.PageRecord{Kind: harvest.KindHTML})
	require.Error(t, err)
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p, err := NewWithPool(mock, Config{}, nil, nil)
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pages").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS files").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, p.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
