package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudscope/cloudscope/internal/cache"
	"github.com/cloudscope/cloudscope/internal/inventory"
	"github.com/cloudscope/cloudscope/internal/store"
	"github.com/cloudscope/cloudscope/telemetry"
	"github.com/cloudscope/cloudscope/types"
)

// stubAggregator stands in for a resolved AWS provider: every label
// present, one EC2 instance to look at.
type stubAggregator struct{}

func (s *stubAggregator) Aggregate(_ context.Context) (types.ResourceCollection, error) {
	coll := types.ResourceCollection{}
	for _, label := range types.AllLabels() {
		coll[label] = []types.ResourceRecord{}
	}
	coll[types.LabelEC2Instances] = []types.ResourceRecord{
		{"Name": "web-1", "State": "running"},
	}
	return coll, nil
}

func (s *stubAggregator) AggregateCategory(_ context.Context, category types.Category) (types.ResourceCollection, error) {
	coll := types.ResourceCollection{}
	for _, label := range types.CategoryLabels(category) {
		coll[label] = []types.ResourceRecord{}
	}
	return coll, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.ProfileStore) {
	t.Helper()

	st, err := store.NewProfileStore(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { _ = st.Close() })

	svc := inventory.NewService(cache.Disabled(), func(_ context.Context, _ *types.Profile) (inventory.Aggregator, error) {
		return &stubAggregator{}, nil
	})

	account := func(_ context.Context, _ *types.Profile) (string, error) {
		return "123456789012", nil
	}

	s := New(st, svc, account, telemetry.NewLogger("test"), ":0", "http://localhost:5173", "us-east-1", false)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func createProfile(t *testing.T, ts *httptest.Server, name string) types.Profile {
	t.Helper()
	body := `{"name":"` + name + `","aws_access_key_id":"AKIAEXAMPLE","aws_secret_access_key":"shhh-secret","aws_region":"eu-west-1"}`
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	return created
}

func errorBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	var payload map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload["error"]
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ═══════════════════════════════════════════════════════════════════════════
// Health & middleware
// ═══════════════════════════════════════════════════════════════════════════

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, float64(0), health["profiles"])
	assert.Nil(t, health["active_profile"])
	assert.Equal(t, false, health["cache_enabled"])
}

func TestHealthz_ReportsActiveProfile(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "dev", health["active_profile"])
	assert.Equal(t, float64(1), health["profiles"])
}

func TestSecurityHeaders(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/api/v1/profiles", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	ts, _ := newTestServer(t)

	var limited int
	for range 40 {
		resp, err := http.Get(ts.URL + "/api/v1/profiles")
		require.NoError(t, err)
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
		}
		_ = resp.Body.Close()
	}
	assert.Positive(t, limited, "burst of 40 should exhaust the per-IP limiter")
}

func TestRateLimit_SkipsHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	for range 40 {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}
}

func TestRateLimit_OneCleanupGoroutinePerServer(t *testing.T) {
	s := New(nil, nil, nil, telemetry.NewLogger("test"), ":0", "", "us-east-1", false)

	before := runtime.NumGoroutine()
	for range 20 {
		_ = s.Handler()
	}
	time.Sleep(50 * time.Millisecond)
	after := runtime.NumGoroutine()

	assert.LessOrEqual(t, after-before, 1, "rebuilding the handler must not stack cleanup goroutines")
}

func TestMetrics_WithoutRegistry(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile CRUD
// ═══════════════════════════════════════════════════════════════════════════

func TestCreateProfile(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"name":"dev","aws_access_key_id":"AKIAEXAMPLE","aws_secret_access_key":"shhh-secret","aws_region":"eu-west-1"}`
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "dev", created.Name)
	assert.Equal(t, "eu-west-1", created.Region)
	assert.Equal(t, "123456789012", created.AccountNumber)
	assert.True(t, created.IsActive, "first profile auto-activates")
	assert.NotZero(t, created.ID)
}

func TestCreateProfile_NeverEchoesSecrets(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"name":"dev","aws_access_key_id":"AKIAEXAMPLE","aws_secret_access_key":"shhh-secret","aws_region":"eu-west-1"}`
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "shhh-secret")
	assert.NotContains(t, string(raw), "AKIAEXAMPLE")
}

func TestCreateProfile_Validation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles",
		`{"name":"dev","aws_access_key_id":"AKIAEXAMPLE"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateProfile_MalformedJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp), "invalid request body")
}

func TestCreateProfile_Duplicate(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	body := `{"name":"dev","aws_access_key_id":"AKIAOTHER","aws_secret_access_key":"other","aws_region":"us-east-1"}`
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles", body)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp), "already exists")
}

func TestGetProfile(t *testing.T) {
	ts, _ := newTestServer(t)
	created := createProfile(t, ts, "dev")

	resp, err := http.Get(ts.URL + "/api/v1/profiles/" + itoa(created.ID))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "dev", got.Name)
}

func TestGetProfile_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/profiles/999")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetProfile_BadID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/profiles/abc")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListProfiles(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")
	createProfile(t, ts, "staging")

	resp, err := http.Get(ts.URL + "/api/v1/profiles")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 2)
	assert.Equal(t, "dev", list[0].Name)
	assert.Equal(t, "staging", list[1].Name)
}

func TestUpdateProfile(t *testing.T) {
	ts, _ := newTestServer(t)
	created := createProfile(t, ts, "dev")

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/v1/profiles/"+itoa(created.ID),
		`{"custom_name":"Development"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, "Development", updated.CustomName)
	assert.Equal(t, "eu-west-1", updated.Region, "untouched fields survive")
}

func TestUpdateProfile_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/v1/profiles/999", `{"custom_name":"x"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteProfile(t *testing.T) {
	ts, _ := newTestServer(t)
	created := createProfile(t, ts, "dev")

	resp := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/profiles/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, ts.URL+"/api/v1/profiles/"+itoa(created.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActivateProfile_Switches(t *testing.T) {
	ts, _ := newTestServer(t)
	first := createProfile(t, ts, "dev")
	second := createProfile(t, ts, "staging")
	require.True(t, first.IsActive)
	require.False(t, second.IsActive)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/v1/profiles/"+itoa(second.ID)+"/activate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var activated types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&activated))
	assert.True(t, activated.IsActive)

	listResp, err := http.Get(ts.URL + "/api/v1/profiles")
	require.NoError(t, err)
	defer listResp.Body.Close()

	var list []types.Profile
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	for _, p := range list {
		assert.Equal(t, p.ID == second.ID, p.IsActive, "exactly the activated profile is active")
	}
}

func TestActivateProfile_NotFound(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/v1/profiles/999/activate", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeactivateProfiles(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	resp := doJSON(t, http.MethodPut, ts.URL+"/api/v1/profiles/deactivate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	health, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()

	var payload map[string]any
	require.NoError(t, json.NewDecoder(health.Body).Decode(&payload))
	assert.Nil(t, payload["active_profile"])
}

// ═══════════════════════════════════════════════════════════════════════════
// Import & role flows
// ═══════════════════════════════════════════════════════════════════════════

func TestImportCredentials(t *testing.T) {
	ts, _ := newTestServer(t)

	text := "[imported]\naws_access_key_id = AKIAIMPORTED\naws_secret_access_key = imported-secret\n"
	body, err := json.Marshal(map[string]string{"credentials_text": text})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles/import", string(body))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "imported", created.Name)
	assert.Equal(t, "us-east-1", created.Region, "server default region applies")
	assert.Equal(t, "123456789012", created.AccountNumber)
}

func TestImportCredentials_Invalid(t *testing.T) {
	ts, _ := newTestServer(t)

	body, err := json.Marshal(map[string]string{"credentials_text": "[x]\naws_access_key_id = AKIA\n"})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles/import", string(body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestImportConfig_PartialSuccess(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	text := "[profile admin]\nrole_arn = arn:aws:iam::123456789012:role/Admin\nsource_profile = dev\nregion = eu-west-1\n\n" +
		"[profile orphan]\nrole_arn = arn:aws:iam::123456789012:role/Orphan\nsource_profile = missing\n"
	body, err := json.Marshal(map[string]string{"config_text": text})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles/import-config", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created []types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.Len(t, created, 1)
	assert.Equal(t, "admin", created[0].Name)
}

func TestImportConfig_NothingUsable(t *testing.T) {
	ts, _ := newTestServer(t)

	text := "[profile orphan]\nrole_arn = arn:aws:iam::123456789012:role/Orphan\nsource_profile = missing\n"
	body, err := json.Marshal(map[string]string{"config_text": text})
	require.NoError(t, err)

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles/import-config", string(body))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp), "not found")
}

func TestFromRole(t *testing.T) {
	ts, _ := newTestServer(t)
	source := createProfile(t, ts, "dev")

	body := `{"source_profile_id":` + itoa(source.ID) + `,"name":"dev-admin","role_type":"existing","role_name":"Admin"}`
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles/from-role", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created types.Profile
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "dev-admin", created.Name)
	assert.Equal(t, "eu-west-1", created.Region, "region inherited from source")
}

func TestFromRole_SourceMissing(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"source_profile_id":999,"name":"x","role_type":"existing","role_name":"Admin"}`
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles/from-role", body)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFromRole_Validation(t *testing.T) {
	ts, _ := newTestServer(t)
	source := createProfile(t, ts, "dev")

	body := `{"source_profile_id":` + itoa(source.ID) + `,"name":"x","role_type":"none"}`
	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/profiles/from-role", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ═══════════════════════════════════════════════════════════════════════════
// Resources
// ═══════════════════════════════════════════════════════════════════════════

func TestGetResources_NoActiveProfile(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/resources")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp), "no active profile")
}

func TestGetResources(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	resp, err := http.Get(ts.URL + "/api/v1/resources")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var coll types.ResourceCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&coll))
	assert.Len(t, coll, len(types.AllLabels()))
	require.Len(t, coll[types.LabelEC2Instances], 1)
	assert.Equal(t, "web-1", coll[types.LabelEC2Instances][0]["Name"])
}

func TestRefreshResources(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	resp := doJSON(t, http.MethodPost, ts.URL+"/api/v1/resources/refresh", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var coll types.ResourceCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&coll))
	assert.Len(t, coll, len(types.AllLabels()))
}

func TestGetResourcesByCategory(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	resp, err := http.Get(ts.URL + "/api/v1/resources/compute")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var coll types.ResourceCollection
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&coll))
	assert.Contains(t, coll, types.LabelEC2Instances)
	assert.NotContains(t, coll, types.LabelVPCs)
}

func TestGetResourcesByCategory_Unknown(t *testing.T) {
	ts, _ := newTestServer(t)
	createProfile(t, ts, "dev")

	resp, err := http.Get(ts.URL + "/api/v1/resources/containers")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, resp), "unknown category")
}
