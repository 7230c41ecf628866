package models

import "time"

// Capability names a privileged action gated by the permission registry.
type Capability string

const (
	// CapabilityUpload guards publishing events and minting upload links.
	CapabilityUpload Capability = "upload"
	// CapabilityForceDelete guards immediate event deletion.
	CapabilityForceDelete Capability = "force-delete"
)

// CapabilityGrant holds the admin-granted extra roles for one capability.
// Core roles for a capability are compile-time policy and never persisted;
// absence of a grant row means "no extra roles".
type CapabilityGrant struct {
	Capability Capability `json:"capability"`
	ExtraRoles []string   `json:"extra_roles"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
