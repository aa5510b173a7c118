package pipeline

import (
	"client-report-card/internal/model"
)

// Projection selects what part of a decoded payload a report keeps.
type Projection uint8

const (
	// ProjectFull keeps the whole decoded payload.
	ProjectFull Projection = iota
	// ProjectCount keeps only success.count.
	ProjectCount
)

// ParseProjection maps the "summary" query value to a Projection.
func ParseProjection(s string) (Projection, bool) {
	switch s {
	case "", "full":
		return ProjectFull, true
	case "count":
		return ProjectCount, true
	}
	return ProjectFull, false
}

type outcome string

const (
	outcomeDecoded outcome = "decoded"
	outcomeEmpty   outcome = "empty"
	outcomeFailed  outcome = "failed"
)

// trace records what happened to one record on its way through the stages.
type trace struct {
	outcome      outcome
	decompressed bool
	envelope     envelopeState
	format       Format
	err          error
}

// Normalize decodes one raw record. It never fails: an empty blob or a
// payload that cannot be decoded yields a Null response.
func Normalize(rec model.RawRecord, proj Projection) model.NormalizedRecord {
	out, _ := normalize(rec, proj)
	return out
}

func normalize(rec model.RawRecord, proj Projection) (model.NormalizedRecord, trace) {
	out := model.NormalizedRecord{
		ID:      rec.ID,
		URL:     rec.URL,
		Type:    rec.Type,
		Action:  rec.Action,
		AddedAt: rec.AddedAt,
	}
	if !rec.HasBlob() {
		return out, trace{outcome: outcomeEmpty}
	}

	var tr trace
	text, decompressed := decompress(*rec.Blob)
	tr.decompressed = decompressed

	payload, state := unwrap(text)
	tr.envelope = state
	tr.format = DetectFormat(payload)

	decoded, err := Decode(payload)
	if err != nil {
		tr.outcome = outcomeFailed
		tr.err = err
		return out, tr
	}
	tr.outcome = outcomeDecoded

	switch proj {
	case ProjectCount:
		if n, ok := decoded.Path("success", "count"); ok {
			out.Response = n
		}
	default:
		out.Response = decoded
	}
	return out, tr
}
