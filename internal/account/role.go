package account

// Role is the closed set of authorization roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ValidRole reports whether the string names a known role.
func ValidRole(r Role) bool {
	return r == RoleUser || r == RoleAdmin
}

// Action is something a caller may attempt against an account resource.
type Action string

const (
	ActionViewProfile    Action = "profile:view"
	ActionUpdateProfile  Action = "profile:update"
	ActionChangeRole     Action = "role:change"
	ActionVerifyAccount  Action = "account:verify"
	ActionListAccounts   Action = "account:list"
	ActionViewActivities Action = "activity:view"
	ActionNotifyAccounts Action = "notification:send"
)

// Can reports whether the role may perform the action. owned indicates
// the target resource belongs to the caller.
func Can(role Role, action Action, owned bool) bool {
	if role == RoleAdmin {
		return true
	}
	switch action {
	case ActionViewProfile, ActionUpdateProfile, ActionViewActivities:
		return owned
	default:
		return false
	}
}
