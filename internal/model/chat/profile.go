package chat

import "slices"

// CompanySize buckets a prospect by headcount.
type CompanySize string

const (
	SizeStartup    CompanySize = "startup"
	SizeSmall      CompanySize = "small"
	SizeMedium     CompanySize = "medium"
	SizeEnterprise CompanySize = "enterprise"
)

// Valid reports whether s is one of the known buckets.
func (s CompanySize) Valid() bool {
	switch s {
	case SizeStartup, SizeSmall, SizeMedium, SizeEnterprise:
		return true
	}
	return false
}

// Profile is what the conversation has revealed about the visitor.
type Profile struct {
	Industry    string      `json:"industry,omitempty"`
	CompanySize CompanySize `json:"companySize,omitempty"`
	Challenges  []string    `json:"challenges,omitempty"`
	Interests   []string    `json:"interests,omitempty"`
	TechStack   []string    `json:"techStack,omitempty"`
}

// DefaultProfile is the profile a new session starts with.
func DefaultProfile() Profile {
	return Profile{
		Challenges: []string{},
		Interests:  []string{},
		TechStack:  []string{},
	}
}

// Clone deep-copies the set fields.
func (p Profile) Clone() Profile {
	p.Challenges = slices.Clone(p.Challenges)
	p.Interests = slices.Clone(p.Interests)
	p.TechStack = slices.Clone(p.TechStack)
	return p
}

// Merge folds other into p. Scalars are only replaced by non-empty values and
// set fields are unioned, so previously known facts are never cleared.
func (p Profile) Merge(other Profile) Profile {
	out := p.Clone()
	if other.Industry != "" {
		out.Industry = other.Industry
	}
	if other.CompanySize.Valid() {
		out.CompanySize = other.CompanySize
	}
	out.Challenges = union(out.Challenges, other.Challenges)
	out.Interests = union(out.Interests, other.Interests)
	out.TechStack = union(out.TechStack, other.TechStack)
	return out
}

func union(base, extra []string) []string {
	if base == nil {
		base = []string{}
	}
	for _, item := range extra {
		if item != "" && !slices.Contains(base, item) {
			base = append(base, item)
		}
	}
	return base
}
