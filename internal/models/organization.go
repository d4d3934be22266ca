package models

// Organization roles. An organization is the tenant that owns webinars and their scoring config.
const (
	OrgRoleOwner        = "owner"
	OrgRoleEventManager = "event_manager"
	OrgRoleModerator    = "moderator"
)
