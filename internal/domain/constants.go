package domain

const (
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

const (
	ProjectRoleOwner   = "OWNER"
	ProjectRolePartner = "PARTNER"
)

const (
	ProjectStatusPlanning   = "PLANNING"
	ProjectStatusInProgress = "IN_PROGRESS"
	ProjectStatusOnHold     = "ON_HOLD"
	ProjectStatusCompleted  = "COMPLETED"
)

const (
	InvitationStatusPending  = "PENDING"
	InvitationStatusAccepted = "ACCEPTED"
	InvitationStatusDeclined = "DECLINED"
	InvitationStatusExpired  = "EXPIRED"
)

// Queued notification event types.
const (
	EventCostAdded        = "COST_ADDED"
	EventDocumentUploaded = "DOCUMENT_UPLOADED"
	EventInvitation       = "INVITATION"
	EventPartnerJoined    = "PARTNER_JOINED"
	EventStatusChanged    = "STATUS_CHANGED"
)

// Email digest frequencies.
const (
	FrequencyImmediate = "immediate"
	FrequencyDaily     = "daily"
	FrequencyWeekly    = "weekly"
	FrequencyNever     = "never"
)

// Email delivery statuses tracked in the email log.
const (
	EmailStatusSent      = "sent"
	EmailStatusDelivered = "delivered"
	EmailStatusBounced   = "bounced"
	EmailStatusFailed    = "failed"
)

const (
	ReportFormatCSV  = "csv"
	ReportFormatJSON = "json"
)

// Cost categories offered by the UI; free-form values are still accepted.
var CostCategories = []string{"LAND", "MATERIALS", "LABOR", "PERMITS", "DESIGN", "FINANCE", "OTHER"}
