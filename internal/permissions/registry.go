// Package permissions answers "is role R authorized for capability C" for the
// chapter's two gated capabilities: publishing events and force-deleting them.
// Each capability has an immutable core role set (compile-time policy) plus an
// admin-curated extra role list persisted per capability. The common case, a
// core role, never touches the database.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/nexus-chapter/backend/internal/models"
)

var (
	// ErrInvalidRole means the role belongs to the capability's core set and
	// cannot be added to or removed from the extra list.
	ErrInvalidRole = errors.New("core roles cannot be granted or revoked")
	// ErrUnknownCapability means the capability is not part of the policy.
	ErrUnknownCapability = errors.New("unknown capability")
)

// Policy holds the immutable role sets per capability. Core lists who is
// always authorized; Managers lists who may curate that capability's extra
// roles. The two are deliberately separate: curating force-delete access is
// rarer than holding it.
type Policy struct {
	Core     map[models.Capability][]models.Role
	Managers map[models.Capability][]models.Role
}

// DefaultPolicy returns the chapter's standing authorization policy.
func DefaultPolicy() Policy {
	return Policy{
		Core: map[models.Capability][]models.Role{
			models.CapabilityUpload: {
				models.RoleAdmin, models.RoleChairperson, models.RoleViceChairperson, models.RoleEvents,
			},
			models.CapabilityForceDelete: {
				models.RoleAdmin, models.RoleChairperson, models.RoleViceChairperson,
			},
		},
		Managers: map[models.Capability][]models.Role{
			models.CapabilityUpload: {
				models.RoleAdmin, models.RoleChairperson, models.RoleViceChairperson,
			},
			models.CapabilityForceDelete: {
				models.RoleAdmin, models.RoleChairperson,
			},
		},
	}
}

// GrantStore persists extra-role lists, one row per capability. Mutations are
// atomic list operations (add-if-absent, remove-if-present) so concurrent
// administrators cannot lose each other's updates.
type GrantStore interface {
	GetExtraRoles(ctx context.Context, capability models.Capability) ([]string, error)
	AddExtraRole(ctx context.Context, capability models.Capability, role string) error
	RemoveExtraRole(ctx context.Context, capability models.Capability, role string) error
}

// Registry is the delegated-permission registry.
type Registry struct {
	policy Policy
	store  GrantStore
}

// NewRegistry creates a registry over the given policy and grant store.
func NewRegistry(policy Policy, store GrantStore) *Registry {
	return &Registry{policy: policy, store: store}
}

// IsCore reports whether role is in the capability's core set.
func (r *Registry) IsCore(capability models.Capability, role string) bool {
	for _, cr := range r.policy.Core[capability] {
		if string(cr) == role {
			return true
		}
	}
	return false
}

// CanManage reports whether role may curate the capability's extra list.
func (r *Registry) CanManage(capability models.Capability, role string) bool {
	for _, mr := range r.policy.Managers[capability] {
		if string(mr) == role {
			return true
		}
	}
	return false
}

// ManagerRoles returns the roles allowed to curate the capability's extra
// list, for actionable error messages to authenticated callers.
func (r *Registry) ManagerRoles(capability models.Capability) []models.Role {
	return r.policy.Managers[capability]
}

// IsAuthorized reports whether role holds the capability, either through the
// core set or through a granted extra role.
func (r *Registry) IsAuthorized(ctx context.Context, capability models.Capability, role string) (bool, error) {
	if _, ok := r.policy.Core[capability]; !ok {
		return false, ErrUnknownCapability
	}
	if r.IsCore(capability, role) {
		return true, nil
	}
	extra, err := r.store.GetExtraRoles(ctx, capability)
	if err != nil {
		return false, fmt.Errorf("load extra roles: %w", err)
	}
	for _, er := range extra {
		if er == role {
			return true, nil
		}
	}
	return false, nil
}

// AddExtraRole grants role the capability. Granting a core role fails with
// ErrInvalidRole: core membership is policy, not data. Adding twice is
// idempotent.
func (r *Registry) AddExtraRole(ctx context.Context, capability models.Capability, role string) error {
	if _, ok := r.policy.Core[capability]; !ok {
		return ErrUnknownCapability
	}
	if r.IsCore(capability, role) {
		return ErrInvalidRole
	}
	if err := r.store.AddExtraRole(ctx, capability, role); err != nil {
		return fmt.Errorf("add extra role: %w", err)
	}
	return nil
}

// RemoveExtraRole revokes a granted extra role. Removing a core role fails
// with ErrInvalidRole; removing a role that was never granted is a no-op.
func (r *Registry) RemoveExtraRole(ctx context.Context, capability models.Capability, role string) error {
	if _, ok := r.policy.Core[capability]; !ok {
		return ErrUnknownCapability
	}
	if r.IsCore(capability, role) {
		return ErrInvalidRole
	}
	if err := r.store.RemoveExtraRole(ctx, capability, role); err != nil {
		return fmt.Errorf("remove extra role: %w", err)
	}
	return nil
}

// ListAuthorized returns the core and extra role lists for the capability.
// Core roles come back in policy order, extra roles sorted.
func (r *Registry) ListAuthorized(ctx context.Context, capability models.Capability) (core []string, extra []string, err error) {
	coreRoles, ok := r.policy.Core[capability]
	if !ok {
		return nil, nil, ErrUnknownCapability
	}
	core = make([]string, 0, len(coreRoles))
	for _, cr := range coreRoles {
		core = append(core, string(cr))
	}
	extra, err = r.store.GetExtraRoles(ctx, capability)
	if err != nil {
		return nil, nil, fmt.Errorf("load extra roles: %w", err)
	}
	sort.Strings(extra)
	return core, extra, nil
}
