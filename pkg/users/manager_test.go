package users

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camelspeed/couchnode/pkg/errors"
	"github.com/camelspeed/couchnode/pkg/logger"
	"github.com/camelspeed/couchnode/pkg/types"
)

// fakeExecutor records the last request spec and plays back a canned response
type fakeExecutor struct {
	lastSpec types.RequestSpec
	response *types.Response
	err      error
}

func (f *fakeExecutor) Execute(ctx context.Context, spec types.RequestSpec) (*types.Response, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func respond(statusCode int, body string) *types.Response {
	return &types.Response{StatusCode: statusCode, Body: []byte(body)}
}

func newTestManager(t *testing.T, executor *fakeExecutor) *Manager {
	t.Helper()
	manager, err := NewManager(executor, logger.NewTestLogger())
	require.NoError(t, err)
	return manager
}

const aliceRecord = `{
	"id": "alice",
	"domain": "local",
	"name": "Alice",
	"groups": ["admins"],
	"roles": [
		{"role": "admin", "origins": [{"type": "user"}]},
		{"role": "data_reader", "bucket_name": "b1", "origins": [{"type": "group", "name": "admins"}]}
	]
}`

func TestNewManager_RequiresExecutor(t *testing.T) {
	_, err := NewManager(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsManagementError(err))
}

func TestManager_GetUser(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, aliceRecord)}
	manager := newTestManager(t, executor)

	user, err := manager.GetUser(context.Background(), "alice", nil)
	require.NoError(t, err)

	assert.Equal(t, types.MethodGet, executor.lastSpec.Method)
	assert.Equal(t, "/settings/rbac/users/local/alice", executor.lastSpec.Path)
	assert.Empty(t, executor.lastSpec.Body)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "local", user.Domain)
	assert.Equal(t, []Role{{Name: "admin"}}, user.Roles)
	assert.Len(t, user.EffectiveRoles, 2)
}

func TestManager_GetUser_DomainOption(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, `{"id": "alice", "domain": "external"}`)}
	manager := newTestManager(t, executor)

	_, err := manager.GetUser(context.Background(), "alice", &GetUserOptions{DomainName: "external"})
	require.NoError(t, err)
	assert.Equal(t, "/settings/rbac/users/external/alice", executor.lastSpec.Path)
}

func TestManager_GetUser_NotFound(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusNotFound, `"Unknown user."`)}
	manager := newTestManager(t, executor)

	_, err := manager.GetUser(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.True(t, errors.IsUserNotFound(err))

	mgmtErr := errors.GetManagementError(err)
	require.NotNil(t, mgmtErr)
	assert.Equal(t, http.StatusNotFound, mgmtErr.StatusCode)
	assert.Equal(t, `"Unknown user."`, mgmtErr.Body)
}

func TestManager_GetUser_OperationFailed(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusServiceUnavailable, "busy")}
	manager := newTestManager(t, executor)

	_, err := manager.GetUser(context.Background(), "alice", nil)
	require.Error(t, err)
	assert.True(t, errors.IsOperationFailed(err))
	assert.False(t, errors.IsNotFound(err))

	mgmtErr := errors.GetManagementError(err)
	require.NotNil(t, mgmtErr)
	assert.Equal(t, http.StatusServiceUnavailable, mgmtErr.StatusCode)
	assert.Contains(t, mgmtErr.Message, "failed to get the user")
}

func TestSnippet_TruncatesOnRuneBoundary(t *testing.T) {
	// "é" is two bytes and straddles the truncation limit here; the cut
	// must step back instead of emitting half a rune.
	body := strings.Repeat("a", bodySnippetLimit-1) + "é"
	got := snippet([]byte(body))
	assert.Equal(t, strings.Repeat("a", bodySnippetLimit-1), got)
	assert.True(t, utf8.ValidString(got))
}

func TestSnippet_ShortBodyUntouched(t *testing.T) {
	assert.Equal(t, "busy", snippet([]byte("busy")))
}

func TestManager_GetUser_ErrorBodyTruncated(t *testing.T) {
	body := strings.Repeat("x", bodySnippetLimit-1) + "日本"
	executor := &fakeExecutor{response: respond(http.StatusInternalServerError, body)}
	manager := newTestManager(t, executor)

	_, err := manager.GetUser(context.Background(), "alice", nil)
	require.Error(t, err)
	mgmtErr := errors.GetManagementError(err)
	require.NotNil(t, mgmtErr)
	assert.LessOrEqual(t, len(mgmtErr.Body), bodySnippetLimit)
	assert.True(t, utf8.ValidString(mgmtErr.Body))
}

func TestManager_GetUser_EmptyUsername(t *testing.T) {
	manager := newTestManager(t, &fakeExecutor{})

	_, err := manager.GetUser(context.Background(), "", nil)
	require.Error(t, err)
	mgmtErr := errors.GetManagementError(err)
	require.NotNil(t, mgmtErr)
	assert.Equal(t, errors.ErrCodeInvalidInput, mgmtErr.Code)
}

func TestManager_GetUser_TransportErrorPropagated(t *testing.T) {
	transportErr := errors.NewConnectionFailedError("http://127.0.0.1:8091", context.DeadlineExceeded)
	manager := newTestManager(t, &fakeExecutor{err: transportErr})

	_, err := manager.GetUser(context.Background(), "alice", nil)
	require.Error(t, err)
	assert.Same(t, transportErr, errors.GetManagementError(err))
}

func TestManager_GetAllUsers(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, `[`+aliceRecord+`, {"id": "bob", "domain": "local"}]`)}
	manager := newTestManager(t, executor)

	users, err := manager.GetAllUsers(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "/settings/rbac/users/local", executor.lastSpec.Path)
	require.Len(t, users, 2)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)
}

func TestManager_UpsertUser(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, "")}
	manager := newTestManager(t, executor)

	ok, err := manager.UpsertUser(context.Background(), User{
		Username:    "alice",
		DisplayName: "Alice",
		Groups:      []string{"admins"},
		Password:    "x",
	}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, types.MethodPut, executor.lastSpec.Method)
	assert.Equal(t, "/settings/rbac/users/local/alice", executor.lastSpec.Path)
	assert.Equal(t, types.ContentTypeForm, executor.lastSpec.ContentType)

	form, err := url.ParseQuery(executor.lastSpec.Body)
	require.NoError(t, err)
	assert.Equal(t, "Alice", form.Get("name"))
	assert.Equal(t, "admins", form.Get("groups"))
	assert.Equal(t, "x", form.Get("password"))
	_, rolesPresent := form["roles"]
	assert.False(t, rolesPresent)
}

func TestManager_UpsertUser_Failure(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusBadRequest, `{"errors":{"password":"too short"}}`)}
	manager := newTestManager(t, executor)

	ok, err := manager.UpsertUser(context.Background(), User{Username: "alice"}, nil)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsOperationFailed(err))
	assert.Equal(t, http.StatusBadRequest, errors.GetManagementError(err).StatusCode)
}

func TestManager_DropUser(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, "")}
	manager := newTestManager(t, executor)

	ok, err := manager.DropUser(context.Background(), "alice", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.MethodDelete, executor.lastSpec.Method)
	assert.Equal(t, "/settings/rbac/users/local/alice", executor.lastSpec.Path)
}

func TestManager_DropUser_NotFound(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusNotFound, "")}
	manager := newTestManager(t, executor)

	ok, err := manager.DropUser(context.Background(), "ghost", nil)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsUserNotFound(err))
}

func TestManager_GetRoles(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, `[
		{"role": "admin", "name": "Full Admin", "desc": "Can manage all cluster features."},
		{"role": "data_reader", "bucket_name": "*", "name": "Data Reader", "desc": "Can read data."}
	]`)}
	manager := newTestManager(t, executor)

	roles, err := manager.GetRoles(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "/settings/rbac/roles", executor.lastSpec.Path)
	require.Len(t, roles, 2)
	assert.Equal(t, "admin", roles[0].Name)
	assert.Equal(t, "Full Admin", roles[0].DisplayName)
	assert.Equal(t, "Can manage all cluster features.", roles[0].Description)
	assert.Equal(t, "data_reader", roles[1].Name)
	assert.Equal(t, "*", roles[1].Bucket)
}

func TestManager_GetGroup(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, `{
		"id": "admins",
		"description": "cluster administrators",
		"roles": [{"role": "admin"}]
	}`)}
	manager := newTestManager(t, executor)

	group, err := manager.GetGroup(context.Background(), "admins", nil)
	require.NoError(t, err)

	assert.Equal(t, "/settings/rbac/groups/admins", executor.lastSpec.Path)
	assert.Equal(t, "admins", group.Name)
	assert.Equal(t, []Role{{Name: "admin"}}, group.Roles)
}

func TestManager_GetGroup_NotFound(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusNotFound, "")}
	manager := newTestManager(t, executor)

	_, err := manager.GetGroup(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.True(t, errors.IsGroupNotFound(err))
	assert.False(t, errors.IsUserNotFound(err))
}

func TestManager_GetAllGroups(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, `[{"id": "admins"}, {"id": "devs"}]`)}
	manager := newTestManager(t, executor)

	groups, err := manager.GetAllGroups(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, "/settings/rbac/groups", executor.lastSpec.Path)
	require.Len(t, groups, 2)
	assert.Equal(t, "admins", groups[0].Name)
	assert.Equal(t, "devs", groups[1].Name)
}

func TestManager_UpsertGroup(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, "")}
	manager := newTestManager(t, executor)

	ok, err := manager.UpsertGroup(context.Background(), Group{
		Name:  "admins",
		Roles: []Role{ParseRole("admin"), {Name: "data_reader", Bucket: "b1"}},
	}, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, types.MethodPut, executor.lastSpec.Method)
	assert.Equal(t, "/settings/rbac/groups/admins", executor.lastSpec.Path)
	assert.Contains(t, executor.lastSpec.Body, "roles=admin%2Cdata_reader%5Bb1%5D")
}

func TestManager_DropGroup(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, "")}
	manager := newTestManager(t, executor)

	ok, err := manager.DropGroup(context.Background(), "admins", nil)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, types.MethodDelete, executor.lastSpec.Method)
	assert.Equal(t, "/settings/rbac/groups/admins", executor.lastSpec.Path)
}

func TestManager_DropGroup_NotFound(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusNotFound, "")}
	manager := newTestManager(t, executor)

	ok, err := manager.DropGroup(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.False(t, ok)
	assert.True(t, errors.IsGroupNotFound(err))
}

func TestManager_TimeoutForwardedVerbatim(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, aliceRecord)}
	manager := newTestManager(t, executor)

	_, err := manager.GetUser(context.Background(), "alice", &GetUserOptions{Timeout: 1500 * time.Millisecond})
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, executor.lastSpec.Timeout)
}

func TestManager_MalformedBody(t *testing.T) {
	executor := &fakeExecutor{response: respond(http.StatusOK, "not json")}
	manager := newTestManager(t, executor)

	_, err := manager.GetUser(context.Background(), "alice", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode")
}
