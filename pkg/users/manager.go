package users

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/camelspeed/couchnode/pkg/errors"
	"github.com/camelspeed/couchnode/pkg/interfaces"
	"github.com/camelspeed/couchnode/pkg/logger"
	"github.com/camelspeed/couchnode/pkg/types"
)

// DefaultDomain is the identity-provider namespace used when none is given
const DefaultDomain = "local"

// bodySnippetLimit caps how much response body is attached to errors
const bodySnippetLimit = 512

// Manager exposes the cluster's user, group and role administration
// operations. It is stateless between calls; concurrent use is safe.
type Manager struct {
	executor interfaces.HTTPExecutor
	logger   interfaces.Logger
}

// NewManager creates a management facade on top of the given executor
func NewManager(executor interfaces.HTTPExecutor, log interfaces.Logger) (*Manager, error) {
	if executor == nil {
		return nil, errors.NewInvalidInputError("executor is required")
	}
	if log == nil {
		log = logger.NewLogger()
	}

	return &Manager{
		executor: executor,
		logger:   log.WithFields(map[string]interface{}{"component": "user_manager"}),
	}, nil
}

// GetUserOptions hold the optional parameters for GetUser
type GetUserOptions struct {
	DomainName string
	Timeout    time.Duration
}

// GetAllUsersOptions hold the optional parameters for GetAllUsers
type GetAllUsersOptions struct {
	DomainName string
	Timeout    time.Duration
}

// UpsertUserOptions hold the optional parameters for UpsertUser
type UpsertUserOptions struct {
	DomainName string
	Timeout    time.Duration
}

// DropUserOptions hold the optional parameters for DropUser
type DropUserOptions struct {
	DomainName string
	Timeout    time.Duration
}

// GetRolesOptions hold the optional parameters for GetRoles
type GetRolesOptions struct {
	Timeout time.Duration
}

// GetGroupOptions hold the optional parameters for GetGroup
type GetGroupOptions struct {
	Timeout time.Duration
}

// GetAllGroupsOptions hold the optional parameters for GetAllGroups
type GetAllGroupsOptions struct {
	Timeout time.Duration
}

// UpsertGroupOptions hold the optional parameters for UpsertGroup
type UpsertGroupOptions struct {
	Timeout time.Duration
}

// DropGroupOptions hold the optional parameters for DropGroup
type DropGroupOptions struct {
	Timeout time.Duration
}

// GetUser fetches one user's full record, including effective roles
func (m *Manager) GetUser(ctx context.Context, username string, opts *GetUserOptions) (*UserAndMetadata, error) {
	if username == "" {
		return nil, errors.NewInvalidInputError("username is required")
	}
	if opts == nil {
		opts = &GetUserOptions{}
	}

	path := userPath(opts.DomainName, username)
	resp, err := m.execute(ctx, types.RequestSpec{
		Method:  types.MethodGet,
		Path:    path,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, m.fail(errors.NewUserNotFoundError(username).
			WithHTTPDetail(resp.StatusCode, snippet(resp.Body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, m.fail(errors.NewOperationFailedError("get the user", resp.StatusCode, snippet(resp.Body)))
	}

	var data userJSON
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode user record: %w", err)
	}

	user := userAndMetadataFromJSON(data)
	return &user, nil
}

// GetAllUsers fetches every user record in a domain
func (m *Manager) GetAllUsers(ctx context.Context, opts *GetAllUsersOptions) ([]UserAndMetadata, error) {
	if opts == nil {
		opts = &GetAllUsersOptions{}
	}

	path := "/settings/rbac/users/" + url.PathEscape(domainOrDefault(opts.DomainName))
	resp, err := m.execute(ctx, types.RequestSpec{
		Method:  types.MethodGet,
		Path:    path,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, m.fail(errors.NewOperationFailedError("get users", resp.StatusCode, snippet(resp.Body)))
	}

	var data []userJSON
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode user records: %w", err)
	}

	users := make([]UserAndMetadata, 0, len(data))
	for _, record := range data {
		users = append(users, userAndMetadataFromJSON(record))
	}
	return users, nil
}

// UpsertUser creates or updates a user. Role grants are not written here.
func (m *Manager) UpsertUser(ctx context.Context, user User, opts *UpsertUserOptions) (bool, error) {
	if user.Username == "" {
		return false, errors.NewInvalidInputError("username is required")
	}
	if opts == nil {
		opts = &UpsertUserOptions{}
	}

	path := userPath(opts.DomainName, user.Username)
	resp, err := m.execute(ctx, types.RequestSpec{
		Method:      types.MethodPut,
		Path:        path,
		Body:        user.formValues().Encode(),
		ContentType: types.ContentTypeForm,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		return false, err
	}

	if resp.StatusCode != http.StatusOK {
		return false, m.fail(errors.NewOperationFailedError("upsert the user", resp.StatusCode, snippet(resp.Body)))
	}
	return true, nil
}

// DropUser removes a user
func (m *Manager) DropUser(ctx context.Context, username string, opts *DropUserOptions) (bool, error) {
	if username == "" {
		return false, errors.NewInvalidInputError("username is required")
	}
	if opts == nil {
		opts = &DropUserOptions{}
	}

	path := userPath(opts.DomainName, username)
	resp, err := m.execute(ctx, types.RequestSpec{
		Method:  types.MethodDelete,
		Path:    path,
		Timeout: opts.Timeout,
	})
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, m.fail(errors.NewUserNotFoundError(username).
			WithHTTPDetail(resp.StatusCode, snippet(resp.Body)))
	}
	if resp.StatusCode != http.StatusOK {
		return false, m.fail(errors.NewOperationFailedError("drop the user", resp.StatusCode, snippet(resp.Body)))
	}
	return true, nil
}

// GetRoles fetches the role catalog
func (m *Manager) GetRoles(ctx context.Context, opts *GetRolesOptions) ([]RoleAndDescription, error) {
	if opts == nil {
		opts = &GetRolesOptions{}
	}

	resp, err := m.execute(ctx, types.RequestSpec{
		Method:  types.MethodGet,
		Path:    "/settings/rbac/roles",
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, m.fail(errors.NewOperationFailedError("get roles", resp.StatusCode, snippet(resp.Body)))
	}

	var data []roleJSON
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode role catalog: %w", err)
	}

	roles := make([]RoleAndDescription, 0, len(data))
	for _, record := range data {
		roles = append(roles, roleAndDescriptionFromJSON(record))
	}
	return roles, nil
}

// GetGroup fetches one group
func (m *Manager) GetGroup(ctx context.Context, groupName string, opts *GetGroupOptions) (*Group, error) {
	if groupName == "" {
		return nil, errors.NewInvalidInputError("group name is required")
	}
	if opts == nil {
		opts = &GetGroupOptions{}
	}

	resp, err := m.execute(ctx, types.RequestSpec{
		Method:  types.MethodGet,
		Path:    groupPath(groupName),
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, m.fail(errors.NewGroupNotFoundError(groupName).
			WithHTTPDetail(resp.StatusCode, snippet(resp.Body)))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, m.fail(errors.NewOperationFailedError("get the group", resp.StatusCode, snippet(resp.Body)))
	}

	var data groupJSON
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode group record: %w", err)
	}

	group := groupFromJSON(data)
	return &group, nil
}

// GetAllGroups fetches every group
func (m *Manager) GetAllGroups(ctx context.Context, opts *GetAllGroupsOptions) ([]Group, error) {
	if opts == nil {
		opts = &GetAllGroupsOptions{}
	}

	resp, err := m.execute(ctx, types.RequestSpec{
		Method:  types.MethodGet,
		Path:    "/settings/rbac/groups",
		Timeout: opts.Timeout,
	})
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, m.fail(errors.NewOperationFailedError("get groups", resp.StatusCode, snippet(resp.Body)))
	}

	var data []groupJSON
	if err := json.Unmarshal(resp.Body, &data); err != nil {
		return nil, fmt.Errorf("failed to decode group records: %w", err)
	}

	groups := make([]Group, 0, len(data))
	for _, record := range data {
		groups = append(groups, groupFromJSON(record))
	}
	return groups, nil
}

// UpsertGroup creates or updates a group
func (m *Manager) UpsertGroup(ctx context.Context, group Group, opts *UpsertGroupOptions) (bool, error) {
	if group.Name == "" {
		return false, errors.NewInvalidInputError("group name is required")
	}
	if opts == nil {
		opts = &UpsertGroupOptions{}
	}

	resp, err := m.execute(ctx, types.RequestSpec{
		Method:      types.MethodPut,
		Path:        groupPath(group.Name),
		Body:        group.formValues().Encode(),
		ContentType: types.ContentTypeForm,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		return false, err
	}

	if resp.StatusCode != http.StatusOK {
		return false, m.fail(errors.NewOperationFailedError("upsert the group", resp.StatusCode, snippet(resp.Body)))
	}
	return true, nil
}

// DropGroup removes a group
func (m *Manager) DropGroup(ctx context.Context, groupName string, opts *DropGroupOptions) (bool, error) {
	if groupName == "" {
		return false, errors.NewInvalidInputError("group name is required")
	}
	if opts == nil {
		opts = &DropGroupOptions{}
	}

	resp, err := m.execute(ctx, types.RequestSpec{
		Method:  types.MethodDelete,
		Path:    groupPath(groupName),
		Timeout: opts.Timeout,
	})
	if err != nil {
		return false, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, m.fail(errors.NewGroupNotFoundError(groupName).
			WithHTTPDetail(resp.StatusCode, snippet(resp.Body)))
	}
	if resp.StatusCode != http.StatusOK {
		return false, m.fail(errors.NewOperationFailedError("drop the group", resp.StatusCode, snippet(resp.Body)))
	}
	return true, nil
}

// execute hands the request to the transport collaborator.
// Transport-level failures are propagated unchanged.
func (m *Manager) execute(ctx context.Context, spec types.RequestSpec) (*types.Response, error) {
	m.logger.Debug("management operation", map[string]interface{}{
		"method": spec.Method,
		"path":   spec.Path,
	})

	resp, err := m.executor.Execute(ctx, spec)
	if err != nil {
		m.logger.Error("management request failed", err, map[string]interface{}{
			"method": spec.Method,
			"path":   spec.Path,
		})
		return nil, err
	}
	return resp, nil
}

func (m *Manager) fail(err *errors.ManagementError) error {
	m.logger.Warn("management operation rejected", map[string]interface{}{
		"code":   string(err.Code),
		"status": err.StatusCode,
	})
	return err
}

func domainOrDefault(domain string) string {
	if domain == "" {
		return DefaultDomain
	}
	return domain
}

func userPath(domain, username string) string {
	return "/settings/rbac/users/" + url.PathEscape(domainOrDefault(domain)) +
		"/" + url.PathEscape(username)
}

func groupPath(groupName string) string {
	return "/settings/rbac/groups/" + url.PathEscape(groupName)
}

func snippet(body []byte) string {
	if len(body) <= bodySnippetLimit {
		return string(body)
	}
	// Back off to a rune boundary so the cut never splits a multi-byte
	// UTF-8 sequence.
	cut := bodySnippetLimit
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return string(body[:cut])
}
