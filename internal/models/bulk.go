package models

// BulkRequest asks for one transition across a set of records
type BulkRequest struct {
	IDs        []string   `json:"ids"`
	Transition Transition `json:"transition"`
}

// BulkResult partitions a bulk run. The batch is not atomic: every id lands in
// exactly one of the three buckets.
type BulkResult struct {
	Transition Transition       `json:"transition"`
	Succeeded  []string         `json:"succeeded"`
	Skipped    []string         `json:"skipped"`
	Failed     map[string]error `json:"-"`

	// FailedOrder keeps Failed ids in request order for reporting
	FailedOrder []string `json:"-"`
}

// NewBulkResult returns an empty result with non-nil buckets
func NewBulkResult(t Transition) *BulkResult {
	return &BulkResult{
		Transition: t,
		Succeeded:  []string{},
		Skipped:    []string{},
		Failed:     make(map[string]error),
	}
}

// BulkFailure is the wire form of one failed id
type BulkFailure struct {
	ID    string `json:"id"`
	Error string `json:"error"`
}

// BulkResponse is the API response for a bulk run
type BulkResponse struct {
	Transition     Transition    `json:"transition"`
	Processed      int           `json:"processed"`
	Succeeded      []string      `json:"succeeded"`
	Skipped        []string      `json:"skipped"`
	Failed         []BulkFailure `json:"failed"`
	SucceededCount int           `json:"succeeded_count"`
	SkippedCount   int           `json:"skipped_count"`
	FailedCount    int           `json:"failed_count"`
}

// Response flattens the result for JSON output
func (r *BulkResult) Response() BulkResponse {
	failed := make([]BulkFailure, 0, len(r.FailedOrder))
	for _, id := range r.FailedOrder {
		msg := ""
		if err := r.Failed[id]; err != nil {
			msg = err.Error()
		}
		failed = append(failed, BulkFailure{ID: id, Error: msg})
	}
	return BulkResponse{
		Transition:     r.Transition,
		Processed:      len(r.Succeeded) + len(r.Skipped) + len(failed),
		Succeeded:      r.Succeeded,
		Skipped:        r.Skipped,
		Failed:         failed,
		SucceededCount: len(r.Succeeded),
		SkippedCount:   len(r.Skipped),
		FailedCount:    len(failed),
	}
}
