package models

// ProfilePolicy decides what issuance does to the requester's profile.
type ProfilePolicy string

const (
	// ProfilePolicyFirst assigns the profile only when the requester has none.
	ProfilePolicyFirst ProfilePolicy = "first"
	// ProfilePolicyLatest repoints the profile at every newly issued credential.
	ProfilePolicyLatest ProfilePolicy = "latest"
)

// IsValid reports whether p is a known policy.
func (p ProfilePolicy) IsValid() bool {
	return p == ProfilePolicyFirst || p == ProfilePolicyLatest
}
