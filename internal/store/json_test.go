package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amishk599/vacancyfeed/internal/model"
)

func TestJSONStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vacancies.json")

	first := NewJSONStore(path)
	require.NoError(t, first.Upsert(ctx, testRecord("1")))
	require.NoError(t, first.Upsert(ctx, testRecord("2")))

	second := NewJSONStore(path)
	recs, err := second.Load(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "1", recs[0].ID)
}

func TestJSONStore_CorruptFile(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"truncated":    `[{"id": "1", "title": `,
		"empty":        ``,
		"not an array": `{"id": "1"}`,
		"duplicate id": `[{"id":"1","description":false,"summary":false},{"id":"1","description":false,"summary":false}]`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "vacancies.json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

			_, err := NewJSONStore(path).Load(ctx)
			require.True(t, errors.Is(err, model.ErrStoreCorrupt), "err = %v", err)

			// The corrupt file must not be overwritten.
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, body, string(data))
		})
	}
}

func TestJSONStore_ReadsLegacySnapshot(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vacancies.json")
	legacy := `[
  {
    "id": "555",
    "title": "ML engineer",
    "salary_from": null,
    "salary_to": 300000,
    "salary_currency": "RUR",
    "description": "<p>text</p>",
    "summary": false,
    "company": "Yandex",
    "is_it_accredited": true,
    "published_at": "2025-03-14T09:30:00+0300",
    "url": "https://hh.ru/vacancy/555",
    "sent": false
  }
]`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	recs, err := NewJSONStore(path).Load(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	require.True(t, rec.Description.IsSucceeded())
	require.True(t, rec.Summary.IsPending())
	require.Nil(t, rec.SalaryFrom)
	require.Equal(t, 300000, *rec.SalaryTo)
	require.True(t, rec.ITAccredited)
}

func TestJSONStore_WritesReadableSnapshot(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "vacancies.json")

	require.NoError(t, NewJSONStore(path).Upsert(ctx, testRecord("1")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	require.True(t, strings.HasPrefix(body, "[\n  {"), "snapshot should be indented: %q", body[:20])
	require.Contains(t, body, `"summary": false`)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
}
