package users

import (
	"context"
	"fmt"

	"github.com/camelspeed/couchnode/pkg/errors"
)

// Callback receives the settled outcome of an asynchronous operation.
// Exactly one of result or err is meaningful; the callback fires exactly once.
type Callback[T any] func(result T, err error)

// dispatch runs fn on its own goroutine and delivers its outcome to cb.
// The work starts immediately.
func dispatch[T any](fn func() (T, error), cb Callback[T]) {
	if cb == nil {
		cb = func(T, error) {}
	}
	go settle(fn, cb)
}

// settle invokes fn and delivers its outcome to cb exactly once. A panic
// inside fn is recovered and delivered as an error through the same channel.
// A panic raised by cb itself is not swallowed: the outcome was already
// delivered, so the panic propagates to surface the bug in caller code.
func settle[T any](fn func() (T, error), cb Callback[T]) {
	delivered := false
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if delivered {
			panic(r)
		}
		var zero T
		cb(zero, errors.NewInternalError(fmt.Sprintf("operation panicked: %v", r)))
	}()

	result, err := fn()
	delivered = true
	cb(result, err)
}

// GetUserAsync is the completion-handler form of GetUser
func (m *Manager) GetUserAsync(ctx context.Context, username string, opts *GetUserOptions, cb Callback[*UserAndMetadata]) {
	dispatch(func() (*UserAndMetadata, error) {
		return m.GetUser(ctx, username, opts)
	}, cb)
}

// GetAllUsersAsync is the completion-handler form of GetAllUsers
func (m *Manager) GetAllUsersAsync(ctx context.Context, opts *GetAllUsersOptions, cb Callback[[]UserAndMetadata]) {
	dispatch(func() ([]UserAndMetadata, error) {
		return m.GetAllUsers(ctx, opts)
	}, cb)
}

// UpsertUserAsync is the completion-handler form of UpsertUser
func (m *Manager) UpsertUserAsync(ctx context.Context, user User, opts *UpsertUserOptions, cb Callback[bool]) {
	dispatch(func() (bool, error) {
		return m.UpsertUser(ctx, user, opts)
	}, cb)
}

// DropUserAsync is the completion-handler form of DropUser
func (m *Manager) DropUserAsync(ctx context.Context, username string, opts *DropUserOptions, cb Callback[bool]) {
	dispatch(func() (bool, error) {
		return m.DropUser(ctx, username, opts)
	}, cb)
}

// GetRolesAsync is the completion-handler form of GetRoles
func (m *Manager) GetRolesAsync(ctx context.Context, opts *GetRolesOptions, cb Callback[[]RoleAndDescription]) {
	dispatch(func() ([]RoleAndDescription, error) {
		return m.GetRoles(ctx, opts)
	}, cb)
}

// GetGroupAsync is the completion-handler form of GetGroup
func (m *Manager) GetGroupAsync(ctx context.Context, groupName string, opts *GetGroupOptions, cb Callback[*Group]) {
	dispatch(func() (*Group, error) {
		return m.GetGroup(ctx, groupName, opts)
	}, cb)
}

// GetAllGroupsAsync is the completion-handler form of GetAllGroups
func (m *Manager) GetAllGroupsAsync(ctx context.Context, opts *GetAllGroupsOptions, cb Callback[[]Group]) {
	dispatch(func() ([]Group, error) {
		return m.GetAllGroups(ctx, opts)
	}, cb)
}

// UpsertGroupAsync is the completion-handler form of UpsertGroup
func (m *Manager) UpsertGroupAsync(ctx context.Context, group Group, opts *UpsertGroupOptions, cb Callback[bool]) {
	dispatch(func() (bool, error) {
		return m.UpsertGroup(ctx, group, opts)
	}, cb)
}

// DropGroupAsync is the completion-handler form of DropGroup
func (m *Manager) DropGroupAsync(ctx context.Context, groupName string, opts *DropGroupOptions, cb Callback[bool]) {
	dispatch(func() (bool, error) {
		return m.DropGroup(ctx, groupName, opts)
	}, cb)
}
