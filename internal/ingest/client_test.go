package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/docstore"
)

func testBundle() Bundle {
	return Bundle{
		Items: []catalog.Item{
			{Name: "Valley of the Kings", Type: catalog.TypeSite, Era: "Ancient", Region: "Africa", Location: "Luxor"},
			{Name: "Egyptian Museum", Type: catalog.TypeMuseum, Region: "Africa", Location: "Cairo"},
			{Name: "Draft entry", Type: catalog.TypeSite, IsDisabled: catalog.Bool(true)},
			{Name: "", Type: catalog.TypeArtifact},
		},
		Requests: []catalog.AdditionRequest{
			{Name: "Abu Simbel", Type: catalog.TypeSite, Location: "Aswan", Status: "approved"},
		},
	}
}

func newBundleServer(t *testing.T, bundle Bundle) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bundle.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		assert.NoError(t, json.NewEncoder(w).Encode(bundle))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIngestFromURL(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	svc := catalog.NewService(store)
	srv := newBundleServer(t, testBundle())

	client := NewClient(5*time.Second, svc, store)
	result, err := client.Ingest(ctx, srv.URL+"/bundle.json")
	require.NoError(t, err)

	assert.Equal(t, Stats{Total: 4, Stored: 3, Failed: 1}, result.Items)
	assert.Equal(t, Stats{Total: 1, Stored: 1, Failed: 0}, result.Requests)

	page, err := svc.GetItems(ctx, catalog.FilterCriteria{}, catalog.DefaultPageSize, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2, "ingested items without a flag are visible, the draft stays hidden")

	requests, err := svc.GetRequests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, catalog.StatusPending, requests[0].Status)

	// the maintenance lock was released
	require.NoError(t, store.Lock(ctx, catalog.MaintenanceLock, "test", time.Minute))
}

func TestIngestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	raw, err := json.Marshal(testBundle())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	store := docstore.NewMemory()
	result, err := NewClient(time.Second, catalog.NewService(store), nil).Ingest(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Items.Stored)
}

func TestIngestRefusesWhenLocked(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()
	require.NoError(t, store.Lock(ctx, catalog.MaintenanceLock, "backfill", time.Minute))

	_, err := NewClient(time.Second, catalog.NewService(store), store).Ingest(ctx, "unused.json")
	require.ErrorIs(t, err, docstore.ErrLocked)
}

func TestLoadErrors(t *testing.T) {
	srv := newBundleServer(t, Bundle{})
	client := NewClient(time.Second, nil, nil)

	_, err := client.Load(context.Background(), srv.URL+"/missing.json")
	assert.ErrorContains(t, err, "status 404")

	_, err = client.Load(context.Background(), filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o600))
	_, err = client.Load(context.Background(), bad)
	assert.ErrorContains(t, err, "failed to parse bundle")
}
