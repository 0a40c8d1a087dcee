package authz

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"

	"github.com/atelierhq/atelier/internal/models"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

// Resource names used in the policy table.
const (
	ResourceProject      = "project"
	ResourceTask         = "task"
	ResourceMilestone    = "milestone"
	ResourceActivity     = "activity"
	ResourceRisk         = "risk"
	ResourceMessage      = "message"
	ResourceNotification = "notification"
	ResourceEvent        = "event"
	ResourceUser         = "user"
	ResourceFile         = "file"
)

// Action names used in the policy table.
const (
	ActionList   = "list"
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Enforcer wraps the casbin enforcer holding the declarative
// (role, resource, action) permission table. It answers the coarse role gate;
// ownership scoping is the scope package's job.
type Enforcer struct {
	e *casbin.Enforcer
}

// NewEnforcer creates the enforcer from the embedded model and policy files.
func NewEnforcer() (*Enforcer, error) {
	dir, err := os.MkdirTemp("", "atelier-casbin-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := writeEmbedToDir(dir, "model.conf", "policy.csv"); err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(
		filepath.Join(dir, "model.conf"),
		filepath.Join(dir, "policy.csv"),
	)
	if err != nil {
		return nil, err
	}
	return &Enforcer{e: e}, nil
}

func writeEmbedToDir(dir string, names ...string) error {
	for _, name := range names {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return err
		}
	}
	return nil
}

// Can checks whether role may perform action on resource.
func (e *Enforcer) Can(role models.Role, resource, action string) (bool, error) {
	return e.e.Enforce(string(role), resource, action)
}
