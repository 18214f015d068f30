package entity

// Task status constants
const (
	TaskStatusTodo       = "TODO"
	TaskStatusInProgress = "IN_PROGRESS"
	TaskStatusDone       = "DONE"
)

// Inspection result constants
const (
	InspectionResultPending = "PENDING"
	InspectionResultPassed  = "PASSED"
	InspectionResultFailed  = "FAILED"
)

// Document kind constants
const (
	DocumentKindDocument = "DOCUMENT"
	DocumentKindPhoto    = "PHOTO"
)

// Document index status constants
const (
	IndexStatusPending = "PENDING"
	IndexStatusIndexed = "INDEXED"
	IndexStatusSkipped = "SKIPPED"
	IndexStatusFailed  = "FAILED"
)

// Chat message roles
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// Activity action constants
const (
	ActivityCreated             = "CREATED"
	ActivityUpdated             = "UPDATED"
	ActivityStatusChanged       = "STATUS_CHANGED"
	ActivityInspectionScheduled = "INSPECTION_SCHEDULED"
	ActivityInspectionResult    = "INSPECTION_RESULT"
	ActivityDocumentUploaded    = "DOCUMENT_UPLOADED"
	ActivityExpiryReminder      = "EXPIRY_REMINDER"
)

// SystemActor attributes changes made without a caller identity
const SystemActor = "system"
