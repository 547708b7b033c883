package models

// UserRole is the role a member holds inside one organization.
type UserRole string

const (
	RoleOwner             UserRole = "owner"
	RoleOperationsManager UserRole = "operations_manager"
	RoleSalesManager      UserRole = "sales_manager"
	RoleEstimatingManager UserRole = "estimating_manager"
	RoleEstimator         UserRole = "estimator"
	RoleFieldManagement   UserRole = "field_management"
)

// AllRoles lists roles from most to least privileged.
var AllRoles = []UserRole{
	RoleOwner,
	RoleOperationsManager,
	RoleSalesManager,
	RoleEstimatingManager,
	RoleEstimator,
	RoleFieldManagement,
}

func (r UserRole) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

type UserStatus string

const (
	UserStatusPending   UserStatus = "pending"
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusInactive, UserStatusSuspended:
		return true
	}
	return false
}

type OrganizationStatus string

const (
	OrganizationStatusActive    OrganizationStatus = "active"
	OrganizationStatusTrial     OrganizationStatus = "trial"
	OrganizationStatusSuspended OrganizationStatus = "suspended"
	OrganizationStatusCancelled OrganizationStatus = "cancelled"
)

// Accessible reports whether members may sign in to the organization.
func (s OrganizationStatus) Accessible() bool {
	return s == OrganizationStatusActive || s == OrganizationStatusTrial
}

type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusExpired  InvitationStatus = "expired"
	InvitationStatusRevoked  InvitationStatus = "revoked"
)

type ContactType string

const (
	ContactTypeCustomer ContactType = "customer"
	ContactTypeProspect ContactType = "prospect"
	ContactTypeVendor   ContactType = "vendor"
	ContactTypeCrew     ContactType = "crew"
	ContactTypeInternal ContactType = "internal"
)

func (t ContactType) Valid() bool {
	switch t {
	case ContactTypeCustomer, ContactTypeProspect, ContactTypeVendor, ContactTypeCrew, ContactTypeInternal:
		return true
	}
	return false
}

type LeadSource string

const (
	LeadSourceReferral       LeadSource = "referral"
	LeadSourceWebsite        LeadSource = "website"
	LeadSourceAdvertising    LeadSource = "advertising"
	LeadSourceSocialMedia    LeadSource = "social_media"
	LeadSourceDirectMail     LeadSource = "direct_mail"
	LeadSourceColdCall       LeadSource = "cold_call"
	LeadSourceTradeShow      LeadSource = "trade_show"
	LeadSourceRepeatCustomer LeadSource = "repeat_customer"
	LeadSourceOther          LeadSource = "other"
)

type LeadStatus string

const (
	LeadStatusNew          LeadStatus = "new"
	LeadStatusContacted    LeadStatus = "contacted"
	LeadStatusQualified    LeadStatus = "qualified"
	LeadStatusQuoted       LeadStatus = "quoted"
	LeadStatusProposalSent LeadStatus = "proposal_sent"
	LeadStatusFollowUp     LeadStatus = "follow_up"
	LeadStatusWon          LeadStatus = "won"
	LeadStatusLost         LeadStatus = "lost"
	LeadStatusInactive     LeadStatus = "inactive"
)

type Division string

const (
	DivisionMultiFamily   Division = "multi_family"
	DivisionSingleFamily  Division = "single_family"
	DivisionRepairRemodel Division = "repair_remodel"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusScheduled  JobStatus = "scheduled"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusOnHold     JobStatus = "on_hold"
	JobStatusCancelled  JobStatus = "cancelled"
)

type EstimateStatus string

const (
	EstimateStatusDraft    EstimateStatus = "draft"
	EstimateStatusSent     EstimateStatus = "sent"
	EstimateStatusViewed   EstimateStatus = "viewed"
	EstimateStatusAccepted EstimateStatus = "accepted"
	EstimateStatusRejected EstimateStatus = "rejected"
	EstimateStatusExpired  EstimateStatus = "expired"
)

type CommunicationType string

const (
	CommunicationEmail   CommunicationType = "email"
	CommunicationPhone   CommunicationType = "phone"
	CommunicationText    CommunicationType = "text"
	CommunicationMeeting CommunicationType = "meeting"
	CommunicationNote    CommunicationType = "note"
	CommunicationFile    CommunicationType = "file"
)

func (s LeadSource) Valid() bool {
	switch s {
	case LeadSourceReferral, LeadSourceWebsite, LeadSourceAdvertising, LeadSourceSocialMedia, LeadSourceDirectMail,
		LeadSourceColdCall, LeadSourceTradeShow, LeadSourceRepeatCustomer, LeadSourceOther:
		return true
	}
	return false
}

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusContacted, LeadStatusQualified, LeadStatusQuoted, LeadStatusProposalSent,
		LeadStatusFollowUp, LeadStatusWon, LeadStatusLost, LeadStatusInactive:
		return true
	}
	return false
}

func (d Division) Valid() bool {
	switch d {
	case DivisionMultiFamily, DivisionSingleFamily, DivisionRepairRemodel:
		return true
	}
	return false
}

func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusScheduled, JobStatusInProgress, JobStatusCompleted, JobStatusOnHold, JobStatusCancelled:
		return true
	}
	return false
}

func (s EstimateStatus) Valid() bool {
	switch s {
	case EstimateStatusDraft, EstimateStatusSent, EstimateStatusViewed, EstimateStatusAccepted,
		EstimateStatusRejected, EstimateStatusExpired:
		return true
	}
	return false
}

func (t CommunicationType) Valid() bool {
	switch t {
	case CommunicationEmail, CommunicationPhone, CommunicationText, CommunicationMeeting, CommunicationNote, CommunicationFile:
		return true
	}
	return false
}
