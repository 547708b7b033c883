package permissions

import (
	"errors"

	"github.com/charlesng35/exteriorcrm/internal/models"
)

func roleIn(role models.UserRole, allowed ...models.UserRole) bool {
	for _, r := range allowed {
		if role == r {
			return true
		}
	}
	return false
}

func CanManageUsers(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleOperationsManager)
}

func CanCreateLeads(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleSalesManager)
}

func CanManageEstimates(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleEstimatingManager, models.RoleEstimator)
}

func CanApproveEstimates(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleEstimatingManager)
}

func CanManageJobs(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleOperationsManager, models.RoleEstimatingManager)
}

func CanUpdateJobStatus(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleOperationsManager, models.RoleFieldManagement)
}

func CanViewReports(role models.UserRole) bool {
	return role.Valid() && role != models.RoleFieldManagement
}

func CanViewAllData(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleOperationsManager)
}

// HasLimitedAccess marks roles that only see records assigned to them.
func HasLimitedAccess(role models.UserRole) bool {
	return roleIn(role, models.RoleEstimator, models.RoleFieldManagement)
}

// Capabilities is the flag set returned with the caller's profile.
type Capabilities struct {
	CanManageUsers      bool `json:"can_manage_users"`
	CanInviteUsers      bool `json:"can_invite_users"`
	CanCreateLeads      bool `json:"can_create_leads"`
	CanManageEstimates  bool `json:"can_manage_estimates"`
	CanApproveEstimates bool `json:"can_approve_estimates"`
	CanManageJobs       bool `json:"can_manage_jobs"`
	CanUpdateJobStatus  bool `json:"can_update_job_status"`
	CanViewReports      bool `json:"can_view_reports"`
	CanViewAllData      bool `json:"can_view_all_data"`
	HasLimitedAccess    bool `json:"has_limited_access"`
}

func CapabilitiesFor(role models.UserRole) Capabilities {
	return Capabilities{
		CanManageUsers:      CanManageUsers(role),
		CanInviteUsers:      CanInvite(role),
		CanCreateLeads:      CanCreateLeads(role),
		CanManageEstimates:  CanManageEstimates(role),
		CanApproveEstimates: CanApproveEstimates(role),
		CanManageJobs:       CanManageJobs(role),
		CanUpdateJobStatus:  CanUpdateJobStatus(role),
		CanViewReports:      CanViewReports(role),
		CanViewAllData:      CanViewAllData(role),
		HasLimitedAccess:    HasLimitedAccess(role),
	}
}

var (
	// ErrInviterRole is returned when the caller's role may not send invitations.
	ErrInviterRole = errors.New("permission: role cannot invite users")
	// ErrOwnerInviteRequiresOwner is returned when a non-owner invites an owner.
	ErrOwnerInviteRequiresOwner = errors.New("permission: only owners can invite owners")
	// ErrManagerInviteRequiresOwner is returned when a non-owner invites a manager.
	ErrManagerInviteRequiresOwner = errors.New("permission: insufficient permissions to invite users with this role")
)

// CanInvite reports whether the role may send invitations at all.
func CanInvite(role models.UserRole) bool {
	return roleIn(role, models.RoleOwner, models.RoleOperationsManager, models.RoleSalesManager)
}

// CheckInvite applies the invitation hierarchy: owners may invite anyone,
// other inviters only non-manager roles.
func CheckInvite(inviter, invitee models.UserRole) error {
	if !CanInvite(inviter) {
		return ErrInviterRole
	}
	if inviter == models.RoleOwner {
		return nil
	}
	if invitee == models.RoleOwner {
		return ErrOwnerInviteRequiresOwner
	}
	if roleIn(invitee, models.RoleOperationsManager, models.RoleSalesManager, models.RoleEstimatingManager) {
		return ErrManagerInviteRequiresOwner
	}
	return nil
}
