package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSessionID is the standardized structured logging key for viewer session identifiers.
	FieldSessionID = "session_id"
	// FieldViewport is the standardized structured logging key for viewport indices.
	FieldViewport = "viewport"
	// FieldStudyUID is the standardized structured logging key for study instance UIDs.
	FieldStudyUID = "study_uid"
	// FieldSeriesUID is the standardized structured logging key for series instance UIDs.
	FieldSeriesUID = "series_uid"
	// FieldSOPUID is the standardized structured logging key for SOP instance UIDs.
	FieldSOPUID = "sop_uid"
	// FieldIndex is the standardized structured logging key for stack positions.
	FieldIndex = "index"
	// FieldGeneration is the standardized structured logging key for load generation counters.
	FieldGeneration = "generation"
	// FieldPlane is the standardized structured logging key for reconstruction planes.
	FieldPlane = "plane"
	// FieldEventType is the standardized structured logging key for event classification.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator guidance on errors.
	FieldErrorHint = "error_hint"
	// FieldCorrelationID is the standardized structured logging key for request correlation identifiers.
	FieldCorrelationID = "correlation_id"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
