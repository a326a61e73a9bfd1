package auth

// Permission labels gate one category of privileged operation each. The
// vocabulary is fixed: labels found in storage that are not listed here never
// satisfy a check, they are carried through resolution inert so that older
// data keeps working when a label is retired.
const (
	PermAdmin             = "admin"
	PermViewMembers       = "view_members"
	PermManageMembers     = "manage_members"
	PermManageSessions    = "manage_sessions"
	PermManageActivity    = "manage_activity"
	PermViewGroupActivity = "view_entire_groups_activity"
	PermPostOnWall        = "post_on_wall"
	PermViewWall          = "view_wall"
	PermManageWall        = "manage_wall"
	PermManageDocs        = "manage_docs"
	PermManageAlliances   = "manage_alliances"
	PermRepresentAlliance = "represent_alliance"
)

var builtinPermissions = []string{
	PermAdmin,
	PermViewMembers,
	PermManageMembers,
	PermManageSessions,
	PermManageActivity,
	PermViewGroupActivity,
	PermPostOnWall,
	PermViewWall,
	PermManageWall,
	PermManageDocs,
	PermManageAlliances,
	PermRepresentAlliance,
}

// KnownPermission reports whether label is part of the fixed vocabulary.
func KnownPermission(label string) bool {
	for _, p := range builtinPermissions {
		if p == label {
			return true
		}
	}
	return false
}

// UniversalPermissions returns the full vocabulary as a fresh set. Owners
// (global flag or workspace owner role) resolve to this set.
func UniversalPermissions() map[string]struct{} {
	set := make(map[string]struct{}, len(builtinPermissions))
	for _, p := range builtinPermissions {
		set[p] = struct{}{}
	}
	return set
}
