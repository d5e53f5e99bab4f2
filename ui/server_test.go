package ui

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"cepop/domain/core"
	"cepop/internal/checkpoint"
	"cepop/internal/orchestrator"
	"cepop/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serverFixture(t *testing.T) (*StatusServer, *checkpoint.FileStore) {
	t.Helper()
	store, err := checkpoint.NewFileStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewStatusServer(store), store
}

func get(t *testing.T, server *StatusServer, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestStatusServer_Records(t *testing.T) {
	server, store := serverFixture(t)

	keys := []core.JobKey{
		{Metallicity: 0.014, AlphaCE: 1.0},
		{Metallicity: 0.001, AlphaCE: 1.0},
	}
	for _, key := range keys {
		require.NoError(t, store.Put(context.Background(), ports.JobRecord{
			Key:       key,
			Status:    ports.StatusComplete,
			Attempts:  1,
			CreatedAt: core.Now(),
			UpdatedAt: core.Now(),
		}))
	}

	rec := get(t, server, "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Records []ports.JobRecord `json:"records"`
		Count   int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Records, 2)
	// Sorted by key string, so the low-metallicity record comes first.
	assert.Equal(t, 0.001, body.Records[0].Key.Metallicity)
}

func TestStatusServer_RecordsEmpty(t *testing.T) {
	server, _ := serverFixture(t)

	rec := get(t, server, "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Count)
}

func TestStatusServer_Summary(t *testing.T) {
	server, _ := serverFixture(t)

	rec := get(t, server, "/api/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	server.SetSummary(&orchestrator.Summary{
		RunID:    core.NewRunID(),
		Complete: 3,
		Failed:   1,
	})

	rec = get(t, server, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	var summary orchestrator.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 3, summary.Complete)
	assert.Equal(t, 1, summary.Failed)
}

func TestStatusServer_Health(t *testing.T) {
	server, _ := serverFixture(t)

	rec := get(t, server, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
