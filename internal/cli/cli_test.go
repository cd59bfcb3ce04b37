package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"stealthcompany.com/archaeoseeker/internal/browse"
	"stealthcompany.com/archaeoseeker/internal/catalog"
	"stealthcompany.com/archaeoseeker/internal/config"
	"stealthcompany.com/archaeoseeker/internal/orchestrator"
)

const (
	adminEmail    = "curator@example.org"
	adminPassword = "brush-and-trowel"
)

func newTestServices(t *testing.T) *orchestrator.Services {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	sm, err := orchestrator.NewServices(context.Background(), config.Config{
		StoreBackend:      config.BackendMemory,
		LimiterBackend:    config.BackendMemory,
		JWTSecret:         "cli-test-secret",
		AdminEmail:        adminEmail,
		AdminPasswordHash: string(hash),
	})
	require.NoError(t, err)
	return sm
}

// run executes the root command against sm with stdin and returns stdout
func run(t *testing.T, sm *orchestrator.Services, stdin string, args ...string) (string, error) {
	t.Helper()
	app := &App{
		loadConfig: func() config.Config { return sm.Config },
		openServices: func(ctx context.Context, cfg config.Config) (*orchestrator.Services, error) {
			return sm, nil
		},
	}
	cmd := newRootCmd(app)
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func addItem(t *testing.T, sm *orchestrator.Services, item catalog.Item) string {
	t.Helper()
	id, err := sm.Catalog.AddItem(context.Background(), item)
	require.NoError(t, err)
	return id
}

func TestPasswdPrintsBcryptHash(t *testing.T) {
	out, err := run(t, newTestServices(t), "s3cret\n", "passwd")
	require.NoError(t, err)

	hash := strings.TrimSpace(out)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestPasswdRejectsEmptyInput(t *testing.T) {
	_, err := run(t, newTestServices(t), "", "passwd")
	assert.Error(t, err)
}

func TestBackfillPatchesLegacyItems(t *testing.T) {
	sm := newTestServices(t)
	ctx := context.Background()
	_, err := sm.Store.Add(ctx, catalog.ItemsCollection, map[string]any{"name": "Knossos", "type": catalog.TypeSite})
	require.NoError(t, err)
	addItem(t, sm, catalog.Item{Name: "Delphi", Type: catalog.TypeSite, IsDisabled: catalog.Bool(false)})

	out, err := run(t, sm, "", "backfill")
	require.NoError(t, err)

	var result map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, map[string]int{"items": 2, "patched": 1}, result)

	page, err := sm.Catalog.GetItems(ctx, catalog.FilterCriteria{}, catalog.DefaultPageSize, "")
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestBrowseShowsRelatedItems(t *testing.T) {
	sm := newTestServices(t)
	museumID := addItem(t, sm, catalog.Item{Name: "British Museum", Type: catalog.TypeMuseum, Location: "London", IsDisabled: catalog.Bool(false)})
	addItem(t, sm, catalog.Item{Name: "Rosetta Stone", Type: catalog.TypeArtifact, MuseumIDs: []string{museumID}, IsDisabled: catalog.Bool(false)})

	out, err := run(t, sm, "search type=Museum\nshow 1\nback\nquit\n", "browse")
	require.NoError(t, err)

	assert.Contains(t, out, "1. British Museum (Museum, London)")
	assert.Contains(t, out, browse.TitleMuseumContents+":")
	assert.Contains(t, out, "  - Rosetta Stone")
	assert.Contains(t, out, "detail> ")
}

func TestBrowseRejectsBadCredentials(t *testing.T) {
	sm := newTestServices(t)

	out, err := run(t, sm, "login\n"+adminEmail+"\nwrong\nback\nitems\nquit\n", "browse")
	require.NoError(t, err)

	assert.Contains(t, out, browse.MsgBadCredentials)
	assert.Contains(t, out, "items needs an administrator session")
}

func TestBrowseAdminApprovesRequest(t *testing.T) {
	sm := newTestServices(t)
	reqID, err := sm.Catalog.AddRequest(context.Background(), catalog.AdditionRequest{
		Name: "Petra", Type: catalog.TypeSite, Location: "Ma'an",
	})
	require.NoError(t, err)

	script := strings.Join([]string{
		"login", adminEmail, adminPassword,
		"requests",
		"approve " + reqID,
		"logout",
		"quit",
	}, "\n") + "\n"
	out, err := run(t, sm, script, "browse")
	require.NoError(t, err)

	assert.Contains(t, out, "Signed in as "+adminEmail)
	assert.Contains(t, out, reqID+"  Site     Petra (Ma'an)")
	assert.Contains(t, out, "Approved as item ")
	assert.Contains(t, out, "Signed out.")
	assert.Contains(t, out, "1. Petra (Site, Ma'an)")

	requests, err := sm.Catalog.GetRequests(context.Background())
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestBrowseSubmitsRequest(t *testing.T) {
	sm := newTestServices(t)

	script := "request\nGöbekli Tepe\nSite\nŞanlıurfa\n\n\n\nquit\n"
	out, err := run(t, sm, script, "browse")
	require.NoError(t, err)
	assert.Contains(t, out, "Thank you!")

	requests, err := sm.Catalog.GetRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "Göbekli Tepe", requests[0].Name)
}

func TestParseFilters(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    catalog.FilterCriteria
		wantErr bool
	}{
		{name: "empty", args: nil, want: catalog.FilterCriteria{}},
		{name: "bare words", args: []string{"bronze", "age"}, want: catalog.FilterCriteria{SearchTerm: "bronze age"}},
		{
			name: "keyed filters",
			args: []string{"term=axe", "type=Artifact", "era=Ancient", "region=North_America"},
			want: catalog.FilterCriteria{SearchTerm: "axe", Type: "Artifact", Era: "Ancient", Region: "North America"},
		},
		{name: "unknown key", args: []string{"color=red"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFilters(tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
