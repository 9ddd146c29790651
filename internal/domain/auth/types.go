// Package auth contains domain-level types for the console's authentication core.
// It is pure and free of transport and storage concerns.
package auth

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind identifies which backend profile endpoint authoritatively describes
// the owner of the current session.
type Kind string

const (
	KindAdmin       Kind = "ADMIN"
	KindResponsable Kind = "RESPONSABLE"
	KindEvaluador   Kind = "EVALUADOR"
)

// Role slugs that determine the principal kind of a freshly logged-in profile.
const (
	SlugResponsable = "RESPONSABLE"
	SlugEvaluador   = "EVALUADOR"
)

// Kinds lists every principal kind in fallback-cycle order.
func Kinds() []Kind {
	return []Kind{KindAdmin, KindResponsable, KindEvaluador}
}

// Valid reports whether k is one of the known principal kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindAdmin, KindResponsable, KindEvaluador:
		return true
	default:
		return false
	}
}

func (k Kind) String() string { return string(k) }

// ParseKind parses a persisted or configured principal kind, case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("invalid principal kind: %q", s)
	}
	return k, nil
}

// UnmarshalText implements encoding.TextUnmarshaler for Kind.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Role is an authorization role held by a profile. Slug is the authorization key.
type Role struct {
	ID     string `json:"id"`
	Slug   string `json:"slug"`
	Nombre string `json:"nombre"`
}

// Profile is the authenticated principal's identity and authorization data.
type Profile struct {
	ID        string `json:"id"`
	Nombres   string `json:"nombres"`
	Apellidos string `json:"apellidos"`
	Correo    string `json:"correo"`
	Roles     []Role `json:"roles"`
}

// Person is the narrow profile shape returned by the responsable and
// evaluador endpoints.
type Person struct {
	ID        string
	Nombres   string
	Apellidos string
	Correo    string
}

// NormalizeSlug trims and upper-cases a role slug.
func NormalizeSlug(slug string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(slug))
}

func foldSlug(slug string) string {
	return cases.Fold().String(strings.TrimSpace(slug))
}

// HasRole reports whether the profile holds a role with the given slug.
// Comparison is case-insensitive. A nil profile holds no roles.
func (p *Profile) HasRole(slug string) bool {
	if p == nil {
		return false
	}
	want := foldSlug(slug)
	if want == "" {
		return false
	}
	for _, r := range p.Roles {
		if foldSlug(r.Slug) == want {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the profile holds at least one of the given slugs.
func (p *Profile) HasAnyRole(slugs ...string) bool {
	for _, s := range slugs {
		if p.HasRole(s) {
			return true
		}
	}
	return false
}

// FullName joins nombres and apellidos.
func (p *Profile) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.Nombres + " " + p.Apellidos)
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Roles = append([]Role(nil), p.Roles...)
	return &cp
}

// Normalized returns a copy with role slugs upper-cased and surrounding
// whitespace removed from identifiers.
func (p Profile) Normalized() Profile {
	out := p
	out.ID = strings.TrimSpace(p.ID)
	out.Correo = strings.TrimSpace(p.Correo)
	out.Roles = make([]Role, 0, len(p.Roles))
	for _, r := range p.Roles {
		out.Roles = append(out.Roles, Role{
			ID:     strings.TrimSpace(r.ID),
			Slug:   NormalizeSlug(r.Slug),
			Nombre: r.Nombre,
		})
	}
	return out
}

// Classify infers the principal kind of a freshly logged-in profile from its role slugs.
func Classify(p Profile) Kind {
	switch {
	case p.HasRole(SlugResponsable):
		return KindResponsable
	case p.HasRole(SlugEvaluador):
		return KindEvaluador
	default:
		return KindAdmin
	}
}

var synthesizedRoles = map[Kind]Role{
	KindResponsable: {ID: "responsable", Slug: SlugResponsable, Nombre: "Responsable Académico"},
	KindEvaluador:   {ID: "evaluador", Slug: SlugEvaluador, Nombre: "Evaluador"},
}

// Synthesize builds a single-role profile from a narrow responsable or evaluador shape.
func Synthesize(kind Kind, person Person) (Profile, error) {
	role, ok := synthesizedRoles[kind]
	if !ok {
		return Profile{}, fmt.Errorf("cannot synthesize profile for kind %q", kind)
	}
	return Profile{
		ID:        strings.TrimSpace(person.ID),
		Nombres:   person.Nombres,
		Apellidos: person.Apellidos,
		Correo:    strings.TrimSpace(person.Correo),
		Roles:     []Role{role},
	}, nil
}

// Snapshot is the externally visible session state.
// User and Kind are either both set or both empty.
type Snapshot struct {
	User    *Profile
	Kind    Kind
	Loading bool
}

// Authenticated reports whether the snapshot carries a user.
func (s Snapshot) Authenticated() bool { return s.User != nil }

// HasRole is a nil-safe role predicate over the snapshot's user.
func (s Snapshot) HasRole(slug string) bool { return s.User.HasRole(slug) }

// HasAnyRole is a nil-safe role predicate over the snapshot's user.
func (s Snapshot) HasAnyRole(slugs ...string) bool { return s.User.HasAnyRole(slugs...) }
