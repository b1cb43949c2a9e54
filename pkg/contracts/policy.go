package contracts

import "time"

// NetworkPolicy bounds outbound network access for a sandboxed run.
type NetworkPolicy struct {
	Blocked   bool     `json:"blocked"`
	Allowlist []string `json:"allowlist,omitempty"`
}

// ImportPolicy bounds which import categories/names a sandboxed module
// may reference.
type ImportPolicy struct {
	AllowedCategories []string `json:"allowed_categories"`
	Forbidden         []string `json:"forbidden"`
}

// ResourcePolicy bounds compute resources for a sandboxed run.
type ResourcePolicy struct {
	Timeout        time.Duration `json:"timeout"`
	MemoryBytes    int64         `json:"memory_bytes"`
	MaxProcs       int           `json:"max_procs"`
}

// ExecutionPolicy bundles the three policy dimensions recognized by
// the Sandbox (C2). Merging two profiles takes the more permissive of
// each scalar and the union of allowlists, but never removes a
// forbidden entry (§3).
type ExecutionPolicy struct {
	ProfileName string         `json:"profile_name"`
	Network     NetworkPolicy  `json:"network"`
	Imports     ImportPolicy   `json:"imports"`
	Resources   ResourcePolicy `json:"resources"`
}

// Merge combines p with other per the monotone merge rule: permissive
// scalars win, allowlists union, and forbidden entries are never
// dropped even if one side omits them.
func (p ExecutionPolicy) Merge(other ExecutionPolicy) ExecutionPolicy {
	out := p

	out.Network.Blocked = p.Network.Blocked && other.Network.Blocked
	out.Network.Allowlist = unionStrings(p.Network.Allowlist, other.Network.Allowlist)

	out.Imports.AllowedCategories = unionStrings(p.Imports.AllowedCategories, other.Imports.AllowedCategories)
	out.Imports.Forbidden = unionStrings(p.Imports.Forbidden, other.Imports.Forbidden)

	if other.Resources.Timeout > out.Resources.Timeout {
		out.Resources.Timeout = other.Resources.Timeout
	}
	if other.Resources.MemoryBytes > out.Resources.MemoryBytes {
		out.Resources.MemoryBytes = other.Resources.MemoryBytes
	}
	if other.Resources.MaxProcs > out.Resources.MaxProcs {
		out.Resources.MaxProcs = other.Resources.MaxProcs
	}

	return out
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
