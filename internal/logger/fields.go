package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through ctx.
const (
	FieldRequestID = "request_id"
	FieldBatchID   = "batch_id"
	FieldMessageID = "message_id"
	FieldComponent = "component"
	FieldClientID  = "client_id"
	FieldSiteURL   = "site_url"
	FieldImageURL  = "image_url"
)

// Metric fields, attached per entry for aggregation.
const (
	FieldDurationMs = "duration_ms"
	FieldCount      = "count"
	FieldSize       = "size"
	FieldOutcome    = "outcome"
	FieldFaceID     = "face_id"
)
