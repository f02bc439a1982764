package jobs

import (
	"encoding/json"
)

// Status classifies one record of a bulk batch
type Status string

const (
	StatusInserted    Status = "inserted"
	StatusSkipped     Status = "skipped-duplicate"
	StatusInvalid     Status = "invalid"
	StatusError       Status = "error"
	StatusWouldInsert Status = "would-insert"
)

// Summary counts bulk outcomes. Dry-run would-inserts count as inserted.
type Summary struct {
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
	Failed   int `json:"failed"`
}

// Add accumulates another summary into s
func (s *Summary) Add(o Summary) {
	s.Inserted += o.Inserted
	s.Skipped += o.Skipped
	s.Invalid += o.Invalid
	s.Failed += o.Failed
}

// ItemResult is the outcome for the record at Index of a batch
type ItemResult struct {
	Index  int
	Status Status

	ID                int64             // inserted
	ExistingID        int64             // skipped-duplicate
	ExistingSourceURL *string           // skipped-duplicate
	Fields            map[string]string // invalid
	Reason            string            // error
	Detail            string            // error
}

type itemResultWire struct {
	Index             int             `json:"index"`
	Status            Status          `json:"status"`
	ID                *int64          `json:"id,omitempty"`
	ExistingID        *int64          `json:"existing_id,omitempty"`
	ExistingSourceURL *string         `json:"existing_source_url"`
	Reason            json.RawMessage `json:"reason,omitempty"`
	Detail            *string         `json:"detail,omitempty"`
}

// MarshalJSON emits only the keys that belong to the result's status
func (r ItemResult) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"index":  r.Index,
		"status": r.Status,
	}
	switch r.Status {
	case StatusInserted:
		out["id"] = r.ID
	case StatusSkipped:
		out["existing_id"] = r.ExistingID
		out["existing_source_url"] = r.ExistingSourceURL
	case StatusInvalid:
		out["reason"] = r.Fields
	case StatusError:
		out["reason"] = r.Reason
		out["detail"] = r.Detail
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *ItemResult) UnmarshalJSON(data []byte) error {
	var w itemResultWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = ItemResult{Index: w.Index, Status: w.Status, ExistingSourceURL: w.ExistingSourceURL}
	if w.ID != nil {
		r.ID = *w.ID
	}
	if w.ExistingID != nil {
		r.ExistingID = *w.ExistingID
	}
	if w.Detail != nil {
		r.Detail = *w.Detail
	}
	if len(w.Reason) > 0 {
		if w.Status == StatusInvalid {
			return json.Unmarshal(w.Reason, &r.Fields)
		}
		return json.Unmarshal(w.Reason, &r.Reason)
	}
	return nil
}

// BulkResult is the response of a bulk ingestion call
type BulkResult struct {
	Summary Summary      `json:"summary"`
	Results []ItemResult `json:"results"`
}

func (b *BulkResult) record(r ItemResult) {
	switch r.Status {
	case StatusInserted, StatusWouldInsert:
		b.Summary.Inserted++
	case StatusSkipped:
		b.Summary.Skipped++
	case StatusInvalid:
		b.Summary.Invalid++
	case StatusError:
		b.Summary.Failed++
	}
	b.Results = append(b.Results, r)
}
