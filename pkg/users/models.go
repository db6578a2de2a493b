package users

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
	"time"
)

// OriginTypeUser marks a role granted directly to the user rather than
// inherited through group membership.
const OriginTypeUser = "user"

// Origin records the provenance of a role grant
type Origin struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Role identifies a single RBAC role, optionally scoped to a bucket
type Role struct {
	Name   string `json:"name"`
	Bucket string `json:"bucket,omitempty"`
}

// ParseRole parses the canonical string form of a role: "name" or "name[bucket]"
func ParseRole(s string) Role {
	open := strings.IndexByte(s, '[')
	if open >= 0 && strings.HasSuffix(s, "]") {
		return Role{
			Name:   s[:open],
			Bucket: s[open+1 : len(s)-1],
		}
	}
	return Role{Name: s}
}

// String renders the canonical string form of the role
func (r Role) String() string {
	if r.Bucket != "" {
		return r.Name + "[" + r.Bucket + "]"
	}
	return r.Name
}

// UnmarshalJSON accepts either the canonical string form ("admin",
// "data_reader[b1]") or a structured record ({"name": ..., "bucket": ...}).
func (r *Role) UnmarshalJSON(data []byte) error {
	if isJSONString(data) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ParseRole(s)
		return nil
	}

	type plain Role
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Role(p)
	return nil
}

func isJSONString(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '"'
}

// RoleAndDescription is a role catalog entry
type RoleAndDescription struct {
	Role
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`
}

// UnmarshalJSON decodes the extension fields alongside Role's flexible form,
// which the promoted Role.UnmarshalJSON would otherwise shadow.
func (r *RoleAndDescription) UnmarshalJSON(data []byte) error {
	if err := r.Role.UnmarshalJSON(data); err != nil {
		return err
	}
	if isJSONString(data) {
		return nil
	}

	var ext struct {
		DisplayName string `json:"display_name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	r.DisplayName = ext.DisplayName
	r.Description = ext.Description
	return nil
}

// RoleAndOrigin is a role grant enriched with its provenance records
type RoleAndOrigin struct {
	Role
	Origins []Origin `json:"origins,omitempty"`
}

// UnmarshalJSON decodes the origin records alongside Role's flexible form
func (r *RoleAndOrigin) UnmarshalJSON(data []byte) error {
	if err := r.Role.UnmarshalJSON(data); err != nil {
		return err
	}
	if isJSONString(data) {
		return nil
	}

	var ext struct {
		Origins []Origin `json:"origins"`
	}
	if err := json.Unmarshal(data, &ext); err != nil {
		return err
	}
	r.Origins = ext.Origins
	return nil
}

// HasUserOrigin reports whether the role was granted directly to the user.
// An empty origin set is treated as an implicit direct grant.
func (r RoleAndOrigin) HasUserOrigin() bool {
	if len(r.Origins) == 0 {
		return true
	}
	for _, origin := range r.Origins {
		if origin.Type == OriginTypeUser {
			return true
		}
	}
	return false
}

// User represents a cluster user for creation and update.
// Password is write-only and is never populated from reads.
type User struct {
	Username    string   `json:"username"`
	DisplayName string   `json:"display_name,omitempty"`
	Groups      []string `json:"groups,omitempty"`
	Roles       []Role   `json:"roles,omitempty"`
	Password    string   `json:"-"`
}

// UserAndMetadata is the full user record returned by reads.
// Roles on the embedded User holds only directly granted roles;
// EffectiveRoles holds every role regardless of origin.
type UserAndMetadata struct {
	User
	Domain                   string          `json:"domain"`
	EffectiveRoles           []Role          `json:"effective_roles,omitempty"`
	EffectiveRolesAndOrigins []RoleAndOrigin `json:"effective_roles_and_origins,omitempty"`
	PasswordChanged          *time.Time      `json:"password_changed,omitempty"`
	ExternalGroups           []string        `json:"external_groups,omitempty"`
}

// Group represents a user group
type Group struct {
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	Roles              []Role `json:"roles,omitempty"`
	LDAPGroupReference string `json:"ldap_group_reference,omitempty"`
}

// Wire records as the management endpoint emits them. Entities are rebuilt
// fresh from these on every response; none of them leak to callers.

type originJSON struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

type roleJSON struct {
	Role    string       `json:"role"`
	Bucket  string       `json:"bucket_name,omitempty"`
	Name    string       `json:"name,omitempty"`
	Desc    string       `json:"desc,omitempty"`
	Origins []originJSON `json:"origins,omitempty"`
}

type userJSON struct {
	ID                 string     `json:"id"`
	Domain             string     `json:"domain"`
	Name               string     `json:"name"`
	Groups             []string   `json:"groups"`
	ExternalGroups     []string   `json:"external_groups"`
	Roles              []roleJSON `json:"roles"`
	PasswordChangeDate string     `json:"password_change_date"`
}

type groupJSON struct {
	ID           string     `json:"id"`
	Description  string     `json:"description"`
	Roles        []roleJSON `json:"roles"`
	LDAPGroupRef string     `json:"ldap_group_ref"`
}

func originFromJSON(data originJSON) Origin {
	return Origin{
		Type: data.Type,
		Name: data.Name,
	}
}

func roleFromJSON(data roleJSON) Role {
	return Role{
		Name:   data.Role,
		Bucket: data.Bucket,
	}
}

func roleAndDescriptionFromJSON(data roleJSON) RoleAndDescription {
	return RoleAndDescription{
		Role:        roleFromJSON(data),
		DisplayName: data.Name,
		Description: data.Desc,
	}
}

func roleAndOriginFromJSON(data roleJSON) RoleAndOrigin {
	origins := make([]Origin, 0, len(data.Origins))
	for _, origin := range data.Origins {
		origins = append(origins, originFromJSON(origin))
	}
	if len(origins) == 0 {
		origins = nil
	}
	return RoleAndOrigin{
		Role:    roleFromJSON(data),
		Origins: origins,
	}
}

// passwordChangeLayouts covers the timestamp forms the endpoint emits
var passwordChangeLayouts = []string{
	"2006-01-02T15:04:05.000Z07:00",
	time.RFC3339,
}

func parsePasswordChanged(value string) *time.Time {
	for _, layout := range passwordChangeLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}

func userFromJSON(data userJSON) User {
	var roles []Role
	for _, roleData := range data.Roles {
		if roleAndOriginFromJSON(roleData).HasUserOrigin() {
			roles = append(roles, roleFromJSON(roleData))
		}
	}
	return User{
		Username:    data.ID,
		DisplayName: data.Name,
		Groups:      data.Groups,
		Roles:       roles,
	}
}

func userAndMetadataFromJSON(data userJSON) UserAndMetadata {
	var effectiveRoles []Role
	var effectiveRolesAndOrigins []RoleAndOrigin
	for _, roleData := range data.Roles {
		effectiveRoles = append(effectiveRoles, roleFromJSON(roleData))
		effectiveRolesAndOrigins = append(effectiveRolesAndOrigins, roleAndOriginFromJSON(roleData))
	}

	var passwordChanged *time.Time
	if data.PasswordChangeDate != "" {
		passwordChanged = parsePasswordChanged(data.PasswordChangeDate)
	}

	return UserAndMetadata{
		User:                     userFromJSON(data),
		Domain:                   data.Domain,
		EffectiveRoles:           effectiveRoles,
		EffectiveRolesAndOrigins: effectiveRolesAndOrigins,
		PasswordChanged:          passwordChanged,
		ExternalGroups:           data.ExternalGroups,
	}
}

func groupFromJSON(data groupJSON) Group {
	var roles []Role
	for _, roleData := range data.Roles {
		roles = append(roles, roleFromJSON(roleData))
	}
	return Group{
		Name:               data.ID,
		Description:        data.Description,
		Roles:              roles,
		LDAPGroupReference: data.LDAPGroupRef,
	}
}

// formValues renders the mutable user fields for a PUT request.
// Username and roles are never written here; role grants are managed by the
// endpoint's own grant mechanism.
func (u User) formValues() url.Values {
	values := url.Values{}
	values.Set("name", u.DisplayName)
	values.Set("groups", strings.Join(u.Groups, ","))
	if u.Password != "" {
		values.Set("password", u.Password)
	}
	return values
}

// formValues renders the mutable group fields for a PUT request.
// Roles are joined into their canonical string form, comma-separated.
func (g Group) formValues() url.Values {
	roles := make([]string, 0, len(g.Roles))
	for _, role := range g.Roles {
		roles = append(roles, role.String())
	}

	values := url.Values{}
	values.Set("description", g.Description)
	values.Set("roles", strings.Join(roles, ","))
	if g.LDAPGroupReference != "" {
		values.Set("ldap_group_ref", g.LDAPGroupReference)
	}
	return values
}
