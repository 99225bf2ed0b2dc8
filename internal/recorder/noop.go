package recorder

// NoopRecorder is used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordKDJ(_ *KDJRecord) error                   { return nil }
func (n *NoopRecorder) RecordCall(_ *CallRecord) error                 { return nil }
func (n *NoopRecorder) RecentKDJ(_ string, _ int) ([]KDJRecord, error) { return nil, nil }
func (n *NoopRecorder) Close() error                                   { return nil }
