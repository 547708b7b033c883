package permissions

const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Permission ids referenced by routes and services.
const (
	UsersCreate = "users.create"
	UsersRead   = "users.read"
	UsersUpdate = "users.update"
	UsersDelete = "users.delete"

	InvitationsCreate = "invitations.create"
	InvitationsRead   = "invitations.read"
	InvitationsDelete = "invitations.delete"

	ContactsCreate = "contacts.create"
	ContactsRead   = "contacts.read"
	ContactsUpdate = "contacts.update"
	ContactsDelete = "contacts.delete"

	LeadsCreate = "leads.create"
	LeadsRead   = "leads.read"
	LeadsUpdate = "leads.update"
	LeadsDelete = "leads.delete"

	JobsCreate = "jobs.create"
	JobsRead   = "jobs.read"
	JobsUpdate = "jobs.update"
	JobsDelete = "jobs.delete"

	EstimatesCreate = "estimates.create"
	EstimatesRead   = "estimates.read"
	EstimatesUpdate = "estimates.update"
	EstimatesDelete = "estimates.delete"

	ReportsRead = "reports.read"

	OrganizationsRead   = "organizations.read"
	OrganizationsUpdate = "organizations.update"
	OrganizationsDelete = "organizations.delete"

	SettingsRead   = "settings.read"
	SettingsUpdate = "settings.update"

	AuditRead = "audit.read"
)

type resourceDef struct {
	name        string
	label       string
	actions     []string
	description string
}

var resources = []resourceDef{
	{"users", "team members", []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}, ""},
	{"invitations", "invitations", []string{ActionCreate, ActionRead, ActionDelete}, ""},
	{"contacts", "contacts", []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}, ""},
	{"leads", "leads", []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}, ""},
	{"jobs", "jobs", []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}, ""},
	{"estimates", "estimates", []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete}, ""},
	{"reports", "reports", []string{ActionRead}, "View dashboards and organization statistics"},
	{"organizations", "the organization profile", []string{ActionRead, ActionUpdate, ActionDelete}, ""},
	{"settings", "organization settings", []string{ActionRead, ActionUpdate}, ""},
	{"audit", "the audit log", []string{ActionRead}, "Review the audit log"},
}

func init() {
	for _, res := range resources {
		for _, action := range res.actions {
			perm := &Permission{
				ID:          res.name + "." + action,
				Resource:    res.name,
				Action:      action,
				Description: res.description,
			}
			if perm.Description == "" {
				perm.Description = describe(action, res.label)
			}
			if action != ActionRead && hasAction(res.actions, ActionRead) {
				perm.DependsOn = []string{res.name + "." + ActionRead}
			}
			if err := Register(perm); err != nil {
				panic(err)
			}
		}
	}
}

func describe(action, label string) string {
	switch action {
	case ActionCreate:
		return "Create " + label
	case ActionRead:
		return "View " + label
	case ActionUpdate:
		return "Edit " + label
	case ActionDelete:
		return "Delete " + label
	default:
		return action + " " + label
	}
}

func hasAction(actions []string, want string) bool {
	for _, action := range actions {
		if action == want {
			return true
		}
	}
	return false
}
