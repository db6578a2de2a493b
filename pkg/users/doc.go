// Package users provides user, group and role administration against a
// cluster's management REST interface.
//
// The package translates the /settings/rbac endpoints into strongly-typed
// domain operations. It provides:
//
// # Core Features
//
//   - User lifecycle management (get, list, upsert, drop) per identity domain
//   - Group lifecycle management (get, list, upsert, drop)
//   - Role catalog listing with display names and descriptions
//   - Direct-grant vs group-inherited role separation via origin records
//   - Dual invocation styles: plain blocking calls and completion callbacks
//   - A mapped error taxonomy preserving the original HTTP status and body
//
// # Architecture
//
// The package follows a layered architecture:
//
//	┌──────────────────┐
//	│     Manager      │  ← Operation facade, status-to-error mapping
//	├──────────────────┤
//	│  Domain Model    │  ← Entities rebuilt fresh from each wire record
//	├──────────────────┤
//	│  HTTPExecutor    │  ← Transport collaborator (pkg/transport)
//	└──────────────────┘
//
// The Manager is stateless between calls. Each operation builds a fresh
// request, awaits exactly one transport round trip, maps the status code,
// and decodes the body into independent domain objects. Operations are safe
// to call concurrently.
//
// # Models
//
//   - User: mutable user fields; Password is write-only
//   - UserAndMetadata: full read record with effective roles and origins
//   - Group: group record with its role grants
//   - Role / RoleAndDescription / RoleAndOrigin: role forms at increasing
//     levels of detail
//   - Origin: provenance of a role grant ("user" for direct grants)
//
// # Quick Start
//
//	cfg := config.DefaultConfig()
//	cfg.Endpoint = "http://127.0.0.1:8091"
//	cfg.Username = "Administrator"
//	cfg.Password = "password"
//
//	executor, err := transport.NewExecutor(cfg, logger.NewLogger())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	manager, err := users.NewManager(executor, logger.NewLogger())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Blocking style
//	user, err := manager.GetUser(ctx, "alice", nil)
//
//	// Callback style
//	manager.GetUserAsync(ctx, "alice", nil, func(user *users.UserAndMetadata, err error) {
//	    // fires exactly once with either user or err
//	})
package users
