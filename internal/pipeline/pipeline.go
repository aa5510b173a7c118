// Package pipeline turns stored legacy response blobs into report records:
// decompress, strip the envelope, decode either serialization format,
// normalize, and optionally sum numeric fields per URL.
//
// Everything here is request-scoped and synchronous. The data store is
// passed in as a Source so tests can run on fixture rows.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"client-report-card/internal/logging"
	"client-report-card/internal/metrics"
	"client-report-card/internal/model"
)

// Source yields the raw history rows for one report.
type Source func(ctx context.Context) ([]model.RawRecord, error)

// StaticSource returns a Source over a fixed slice.
func StaticSource(records []model.RawRecord) Source {
	return func(context.Context) ([]model.RawRecord, error) {
		return records, nil
	}
}

// Options tunes a single run.
type Options struct {
	Projection Projection
	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Stats counts per-record outcomes of one run.
type Stats struct {
	Records      int `json:"records"`
	Decoded      int `json:"decoded"`
	Empty        int `json:"empty"`
	Failed       int `json:"failed"`
	Decompressed int `json:"decompressed"`
	Malformed    int `json:"malformed_envelopes"`
}

func (s *Stats) add(tr trace) {
	s.Records++
	switch tr.outcome {
	case outcomeDecoded:
		s.Decoded++
	case outcomeEmpty:
		s.Empty++
	case outcomeFailed:
		s.Failed++
	}
	if tr.decompressed {
		s.Decompressed++
	}
	if tr.envelope == envelopeUnterminated {
		s.Malformed++
	}
}

// Run fetches records from src and normalizes each one. Only a failing
// source or a cancelled context produces an error; bad records come back
// with a Null response.
func Run(ctx context.Context, src Source, opts Options) ([]model.NormalizedRecord, Stats, error) {
	start := time.Now()
	raws, err := src(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("fetch history: %w", err)
	}

	out, stats, err := NormalizeAll(ctx, raws, opts)
	if err != nil {
		return nil, stats, err
	}

	if opts.Metrics != nil {
		opts.Metrics.ReportDuration.WithLabelValues("records").Observe(time.Since(start).Seconds())
	}
	logging.Ctx(ctx).Info().
		Int("records", stats.Records).
		Int("decoded", stats.Decoded).
		Int("empty", stats.Empty).
		Int("failed", stats.Failed).
		Dur("duration", time.Since(start)).
		Msg("history records normalized")
	return out, stats, nil
}

// Report is Run followed by Aggregate.
func Report(ctx context.Context, src Source, opts Options) ([]model.AggregatedRecord, Stats, error) {
	start := time.Now()
	raws, err := src(ctx)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("fetch history: %w", err)
	}

	normalized, stats, err := NormalizeAll(ctx, raws, opts)
	if err != nil {
		return nil, stats, err
	}
	aggregated := Aggregate(normalized)

	if opts.Metrics != nil {
		opts.Metrics.ReportDuration.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())
		opts.Metrics.AggregatedGroups.Observe(float64(len(aggregated)))
	}
	logging.Ctx(ctx).Info().
		Int("records", stats.Records).
		Int("failed", stats.Failed).
		Int("groups", len(aggregated)).
		Dur("duration", time.Since(start)).
		Msg("history records aggregated")
	return aggregated, stats, nil
}

// NormalizeAll normalizes raws in order.
func NormalizeAll(ctx context.Context, raws []model.RawRecord, opts Options) ([]model.NormalizedRecord, Stats, error) {
	log := logging.Ctx(ctx)
	out := make([]model.NormalizedRecord, 0, len(raws))
	var stats Stats

	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}

		rec, tr := normalize(raw, opts.Projection)
		stats.add(tr)
		observe(opts.Metrics, tr)

		if tr.envelope == envelopeUnterminated {
			log.Warn().Str("id", raw.ID).Str("url", raw.URL).Msg("response envelope has no end tag")
		}
		if tr.err != nil {
			log.Debug().Err(tr.err).Str("id", raw.ID).Str("format", string(tr.format)).Msg("response not decodable")
		}
		out = append(out, rec)
	}
	return out, stats, nil
}

func observe(m *metrics.Metrics, tr trace) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(string(tr.outcome)).Inc()
	if tr.decompressed {
		m.Decompressed.Inc()
	}
	if tr.envelope == envelopeUnterminated {
		m.MalformedEnvelope.Inc()
	}
}
