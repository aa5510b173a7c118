package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client-report-card/internal/config"
	"client-report-card/internal/model"
	blobs "client-report-card/internal/testutil"
)

type stubStore struct {
	records []model.RawRecord
	err     error
	pingErr error
	last    model.HistoryQuery
}

func (s *stubStore) FetchHistory(_ context.Context, q model.HistoryQuery) ([]model.RawRecord, error) {
	s.last = q
	return s.records, s.err
}

func (s *stubStore) Ping(context.Context) (time.Duration, error) {
	return time.Millisecond, s.pingErr
}

var limits = config.ReportConfig{DefaultLimit: 50, MaxLimit: 100}

func serve(t *testing.T, fn http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	fn(rec, httptest.NewRequest(http.MethodGet, target, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	return rec
}

func fixtureRecords() []model.RawRecord {
	return []model.RawRecord{
		{ID: "2", URL: "https://a.example", Type: "backup", AddedAt: 1700000100,
			Blob: blobs.Ptr(blobs.TaggedBlob(map[string]any{"success": map[string]any{"count": 4}, "size": 10}))},
		{ID: "1", URL: "https://a.example", Type: "backup", AddedAt: 1700000000,
			Blob: blobs.Ptr(blobs.Compress(blobs.LegacyBlob(model.MapOf("success", model.MapOf("count", 1), "size", 5))))},
		{ID: "3", URL: "https://b.example", Type: "backup", AddedAt: 1700000050, Blob: nil},
	}
}

func TestReportRequiresURL(t *testing.T) {
	h := NewReportHandler(&stubStore{}, limits, nil)

	rec := serve(t, h.Report, "/api")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"URL parameter is required"}`, rec.Body.String())
}

func TestReport(t *testing.T) {
	store := &stubStore{records: fixtureRecords()[:2]}
	h := NewReportHandler(store, limits, nil)

	rec := serve(t, h.Report, "/api?url=https://a.example&type=backup&limit=500&from=1699999999")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "https://a.example", store.last.URL)
	assert.Equal(t, "backup", store.last.Type)
	assert.Equal(t, 100, store.last.Limit)
	assert.Equal(t, int64(1699999999), store.last.From.Unix())

	assert.JSONEq(t, `{
		"url": "https://a.example",
		"count": 2,
		"records": [
			{"id": "2", "url": "https://a.example", "type": "backup", "added_at": 1700000100, "response": {"success": {"count": 4}, "size": 10}},
			{"id": "1", "url": "https://a.example", "type": "backup", "added_at": 1700000000, "response": {"success": {"count": 1}, "size": 5}}
		]
	}`, rec.Body.String())
}

func TestReportCountSummary(t *testing.T) {
	h := NewReportHandler(&stubStore{records: fixtureRecords()}, limits, nil)

	rec := serve(t, h.Report, "/api?url=x&summary=count")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ReportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Records, 3)
	assert.True(t, model.Equal(model.Number(4), body.Records[0].Response))
	assert.True(t, model.Equal(model.Number(1), body.Records[1].Response))
	assert.True(t, body.Records[2].Response.IsNull())
}

func TestReportEmpty(t *testing.T) {
	h := NewReportHandler(&stubStore{}, limits, nil)

	rec := serve(t, h.Report, "/api?url=https://none.example")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://none.example","count":0,"records":[]}`, rec.Body.String())
}

func TestBadParameters(t *testing.T) {
	h := NewReportHandler(&stubStore{}, limits, nil)

	tests := []struct {
		target  string
		wantErr string
	}{
		{"/api?url=x&from=yesterday", "invalid from parameter"},
		{"/api?url=x&to=nope", "invalid to parameter"},
		{"/api?url=x&from=200&to=100", "to must not be before from"},
		{"/api?url=x&summary=everything", `invalid summary parameter "everything"`},
		{"/api?url=x&limit=abc", "invalid limit parameter"},
		{"/api?url=x&limit=-3", "invalid limit parameter"},
		{"/api?url=x&limit=0", "invalid limit parameter"},
		{"/api?url=x&type=" + strings.Repeat("t", 65), "invalid type parameter"},
	}
	for _, tt := range tests {
		t.Run(tt.wantErr, func(t *testing.T) {
			rec := serve(t, h.Report, tt.target)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Contains(t, body.Error, tt.wantErr)
		})
	}
}

func TestReportStoreFailure(t *testing.T) {
	h := NewReportHandler(&stubStore{err: errors.New("too many connections")}, limits, nil)

	rec := serve(t, h.Report, "/api?url=x")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to load history"}`, rec.Body.String())

	rec = serve(t, h.Aggregate, "/api/aggregate")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAggregate(t *testing.T) {
	store := &stubStore{records: fixtureRecords()}
	h := NewReportHandler(store, limits, nil)

	rec := serve(t, h.Aggregate, "/api/aggregate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "", store.last.URL)
	assert.Equal(t, 50, store.last.Limit)

	assert.JSONEq(t, `{
		"count": 1,
		"records": [
			{"url": "https://a.example", "records": 2, "response": {"success": {"count": 4}, "size": 15}}
		]
	}`, rec.Body.String())
}

func TestHealth(t *testing.T) {
	h := NewReportHandler(&stubStore{}, limits, nil)
	rec := serve(t, h.Health, "/api/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	h = NewReportHandler(&stubStore{pingErr: errors.New("dial tcp: refused")}, limits, nil)
	rec = serve(t, h.Health, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unavailable"`)
}
