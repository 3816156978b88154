// Copyright 2026 The Guildboard Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package authz

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical names for roles stored in the database.
// -----------------------------------------------------------------------------

const (
	// RoleAdmin satisfies every role and permission requirement.
	RoleAdmin = "admin"

	// RoleModerator is the community moderation role.
	RoleModerator = "moderator"

	// RoleMember is the default role for dashboard accounts.
	RoleMember = "member"
)

// SeedRoles are inserted on first database bootstrap only.
var SeedRoles = []Role{
	{Name: RoleAdmin, DisplayName: "Administrator", Priority: 100, IsActive: true},
	{Name: RoleModerator, DisplayName: "Moderator", Priority: 50, IsActive: true},
	{Name: RoleMember, DisplayName: "Member", Priority: 10, IsActive: true},
}

// -----------------------------------------------------------------------------
// Permission Name Constants
// -----------------------------------------------------------------------------

const (
	PermMembersView   = "members.view"
	PermMembersManage = "members.manage"

	PermTranscriptsView   = "transcripts.view"
	PermTranscriptsDelete = "transcripts.delete"

	PermCommentsView     = "comments.view"
	PermCommentsCreate   = "comments.create"
	PermCommentsModerate = "comments.moderate"

	PermProfilesView = "profiles.view"

	PermUsersManage = "users.manage"

	PermPermissionsView   = "permissions.view"
	PermPermissionsManage = "permissions.manage"

	PermRolesManage = "roles.manage"

	PermCalendarManage = "calendar.manage"
	PermForumModerate  = "forum.moderate"
)

// ManifestEntry describes one permission in the seed manifest.
type ManifestEntry struct {
	Name        string
	Description string
	Category    string
}

// Manifest is the fixed permission catalog seeded at every process start.
// Entries may be appended; existing entries are never rewritten in storage.
var Manifest = []ManifestEntry{
	{PermMembersView, "View guild members", "members"},
	{PermMembersManage, "Edit guild member records", "members"},
	{PermTranscriptsView, "Read ticket transcripts", "transcripts"},
	{PermTranscriptsDelete, "Delete ticket transcripts", "transcripts"},
	{PermCommentsView, "Read comments on members", "comments"},
	{PermCommentsCreate, "Write comments on members", "comments"},
	{PermCommentsModerate, "Edit or delete any comment and read private comments", "comments"},
	{PermProfilesView, "View other users' profiles", "profiles"},
	{PermUsersManage, "Manage dashboard user accounts", "users"},
	{PermPermissionsView, "List the permission catalog and user grants", "permissions"},
	{PermPermissionsManage, "Grant and revoke user permissions", "permissions"},
	{PermRolesManage, "Create roles", "roles"},
	{PermCalendarManage, "Manage calendar events", "calendar"},
	{PermForumModerate, "Moderate forum threads", "forum"},
}
