package domain

import "encoding/json"

// PredictionStatus enumerates the provider-defined lifecycle states.
type PredictionStatus string

const (
	PredictionStarting   PredictionStatus = "starting"
	PredictionQueued     PredictionStatus = "queued"
	PredictionProcessing PredictionStatus = "processing"
	PredictionSucceeded  PredictionStatus = "succeeded"
	PredictionFailed     PredictionStatus = "failed"
	PredictionCanceled   PredictionStatus = "canceled"
)

// Terminal reports whether the status will not change on further polls.
func (s PredictionStatus) Terminal() bool {
	switch s {
	case PredictionSucceeded, PredictionFailed, PredictionCanceled:
		return true
	}
	return false
}

// Prediction is a snapshot of a provider-side generation job. The provider
// owns the record; this type is read-only from the server's perspective.
type Prediction struct {
	ID     string           `json:"id"`
	Status PredictionStatus `json:"status"`
	Output json.RawMessage  `json:"output,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// FirstArtifact normalizes the raw output into a single artifact reference.
// The provider may return a bare URL string or an ordered array of URLs; the
// first element wins. Anything else is either empty or unrecognized.
func (p *Prediction) FirstArtifact() (string, error) {
	if len(p.Output) == 0 {
		return "", ErrEmptyOutput
	}

	var single string
	if err := json.Unmarshal(p.Output, &single); err == nil {
		if single == "" {
			return "", ErrEmptyOutput
		}
		return single, nil
	}

	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil {
		if len(many) == 0 || many[0] == "" {
			return "", ErrEmptyOutput
		}
		return many[0], nil
	}

	// null decodes into neither branch above but is still "no artifact".
	var null any
	if err := json.Unmarshal(p.Output, &null); err == nil && null == nil {
		return "", ErrEmptyOutput
	}

	return "", ErrUnrecognizedOutput
}
