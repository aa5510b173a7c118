package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"client-report-card/internal/metrics"
	"client-report-card/internal/model"
	blobs "client-report-card/internal/testutil"
)

func fixture() []model.RawRecord {
	return []model.RawRecord{
		{ID: "1", URL: "a", Blob: blobs.Ptr(blobs.TaggedBlob(map[string]any{"hits": 3, "fails": 1}))},
		{ID: "2", URL: "b", Blob: blobs.Ptr("not base64!!")},
		{ID: "3", URL: "a", Blob: blobs.Ptr(blobs.Compress(blobs.LegacyBlob(model.MapOf("hits", 7, "fails", 0))))},
		{ID: "4", URL: "c", Blob: nil},
		{ID: "5", URL: "c", Blob: blobs.Ptr("<IWPHEADER>" + JSONMarker + "eyJvayI6MX0=")},
	}
}

func TestRunIsolatesBadRecords(t *testing.T) {
	out, stats, err := Run(context.Background(), StaticSource(fixture()), Options{})
	require.NoError(t, err)
	require.Len(t, out, 5)

	assert.False(t, out[0].Response.IsNull())
	assert.True(t, out[1].Response.IsNull())
	assert.False(t, out[2].Response.IsNull())
	assert.True(t, out[3].Response.IsNull())
	assert.True(t, model.Equal(model.MapOf("ok", 1), out[4].Response))

	assert.Equal(t, Stats{Records: 5, Decoded: 3, Empty: 1, Failed: 1, Decompressed: 1, Malformed: 1}, stats)
}

func TestReportAggregatesByURL(t *testing.T) {
	out, _, err := Report(context.Background(), StaticSource(fixture()), Options{})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "a", out[0].URL)
	assert.Equal(t, 2, out[0].Records)
	assert.True(t, model.Equal(model.MapOf("hits", 10, "fails", 1), out[0].Response), "got %v", out[0].Response)

	assert.Equal(t, "c", out[1].URL)
	assert.Equal(t, 1, out[1].Records)
}

func TestReportEmptySource(t *testing.T) {
	out, stats, err := Report(context.Background(), StaticSource(nil), Options{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, Stats{}, stats)
}

func TestRunSourceError(t *testing.T) {
	boom := errors.New("connection refused")
	src := func(context.Context) ([]model.RawRecord, error) { return nil, boom }

	_, _, err := Run(context.Background(), src, Options{})
	assert.ErrorIs(t, err, boom)

	_, _, err = Report(context.Background(), src, Options{})
	assert.ErrorIs(t, err, boom)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := Run(ctx, StaticSource(fixture()), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunRecordsMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	_, _, err := Run(context.Background(), StaticSource(fixture()), Options{Metrics: m})
	require.NoError(t, err)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("decoded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsTotal.WithLabelValues("empty")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decompressed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MalformedEnvelope))
}
