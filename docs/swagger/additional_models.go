package docs

// Additional request/response models for API documentation

// MetaInfo represents the metadata half of the response envelope
type MetaInfo struct {
	// Request identifier, echoed from or generated for the request
	// @example "cbe1f2d4a6b8"
	RequestID string `json:"request_id,omitempty" example:"cbe1f2d4a6b8"`

	// Response timestamp
	// @example "2025-03-10T08:30:00Z"
	Timestamp string `json:"timestamp,omitempty" example:"2025-03-10T08:30:00Z"`
}

// ReadyResponse represents the readiness probe payload
type ReadyResponse struct {
	// Readiness status, "ready" once the version store answers
	// @example "ready"
	Status string `json:"status" example:"ready"`
}

// VersionEventNotification represents a real-time update pushed to
// websocket clients when a version event fires
type VersionEventNotification struct {
	// Message discriminator for client routing
	// @example "versionEvent"
	Action string `json:"action" example:"versionEvent"`

	// Domain event type
	// @example "snapshot_created"
	EventType string `json:"event_type" example:"snapshot_created"`

	// Node the event concerns
	// @example "pit-12"
	NodeID string `json:"node_id,omitempty" example:"pit-12"`

	// Version the event concerns
	// @example "pit-12:v7"
	VersionID string `json:"version_id,omitempty" example:"pit-12:v7"`
}
