package vault

import "github.com/pooltogether/swappable-yield-source/domain"

// Roles is the default AccessControl: a fixed owner plus an optional asset
// manager whose capability the owner delegates and revokes at runtime.
type Roles struct {
	owner   domain.Address
	manager domain.Address
}

// NewRoles creates the default role set with no asset manager delegated.
func NewRoles(owner domain.Address) *Roles {
	return &Roles{owner: owner}
}

// Owner returns the privileged principal fixed at initialization.
func (r *Roles) Owner() domain.Address { return r.owner }

// AssetManager returns the delegated principal, or the zero address when
// none is set.
func (r *Roles) AssetManager() domain.Address { return r.manager }

// IsOwnerOrManager reports whether caller holds the privileged capability.
// The zero address never does, even while no manager is delegated.
func (r *Roles) IsOwnerOrManager(caller domain.Address) bool {
	if caller.IsZero() {
		return false
	}
	return caller == r.owner || caller == r.manager
}

func (r *Roles) setManager(manager domain.Address) { r.manager = manager }
