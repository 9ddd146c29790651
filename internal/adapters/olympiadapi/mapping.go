package olympiadapi

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	domainauth "github.com/ohsansi/olympiad-console/internal/domain/auth"
)

// Default JMESPath expressions locating payloads inside the varying response envelopes.
const (
	DefaultProfileExpr      = "user || data || @"
	DefaultLoginTokenExpr   = "token || access_token || data.token"
	DefaultLoginUserExpr    = "user || data.user"
	DefaultLoginMessageExpr = "message"
)

// Extraction holds the JMESPath expressions applied to each endpoint's body.
type Extraction struct {
	LoginToken   string
	LoginUser    string
	LoginMessage string
	Admin        string
	Responsable  string
	Evaluador    string
}

// DefaultExtraction returns the expressions matching the known backend envelopes.
func DefaultExtraction() Extraction {
	return Extraction{
		LoginToken:   DefaultLoginTokenExpr,
		LoginUser:    DefaultLoginUserExpr,
		LoginMessage: DefaultLoginMessageExpr,
		Admin:        DefaultProfileExpr,
		Responsable:  DefaultProfileExpr,
		Evaluador:    DefaultProfileExpr,
	}
}

func (e Extraction) withDefaults() Extraction {
	d := DefaultExtraction()
	pick := func(v, def string) string {
		if strings.TrimSpace(v) == "" {
			return def
		}
		return v
	}
	return Extraction{
		LoginToken:   pick(e.LoginToken, d.LoginToken),
		LoginUser:    pick(e.LoginUser, d.LoginUser),
		LoginMessage: pick(e.LoginMessage, d.LoginMessage),
		Admin:        pick(e.Admin, d.Admin),
		Responsable:  pick(e.Responsable, d.Responsable),
		Evaluador:    pick(e.Evaluador, d.Evaluador),
	}
}

// Validate compiles every expression.
func (e Extraction) Validate() error {
	for name, expr := range map[string]string{
		"login token":   e.LoginToken,
		"login user":    e.LoginUser,
		"login message": e.LoginMessage,
		"admin":         e.Admin,
		"responsable":   e.Responsable,
		"evaluador":     e.Evaluador,
	} {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		if _, err := jmespath.Compile(expr); err != nil {
			return fmt.Errorf("invalid %s JMESPath %q: %w", name, expr, err)
		}
	}
	return nil
}

func search(expr string, data any) (any, error) {
	if strings.TrimSpace(expr) == "" {
		return data, nil
	}
	return jmespath.Search(expr, data)
}

// flexString accepts JSON strings and numbers, so ids arrive stringified.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == "" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(str))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

type roleDTO struct {
	ID     flexString `json:"id"`
	Slug   string     `json:"slug"`
	Nombre string     `json:"nombre"`
	Name   string     `json:"name"`
}

type profileDTO struct {
	ID        flexString `json:"id"`
	Nombres   string     `json:"nombres"`
	Apellidos string     `json:"apellidos"`
	Correo    string     `json:"correo"`
	Email     string     `json:"email"`
	Roles     []roleDTO  `json:"roles"`
}

func (d profileDTO) correo() string {
	if d.Correo != "" {
		return d.Correo
	}
	return d.Email
}

func (d profileDTO) toProfile() domainauth.Profile {
	roles := make([]domainauth.Role, 0, len(d.Roles))
	for _, r := range d.Roles {
		nombre := r.Nombre
		if nombre == "" {
			nombre = r.Name
		}
		roles = append(roles, domainauth.Role{ID: string(r.ID), Slug: r.Slug, Nombre: nombre})
	}
	return domainauth.Profile{
		ID:        string(d.ID),
		Nombres:   d.Nombres,
		Apellidos: d.Apellidos,
		Correo:    d.correo(),
		Roles:     roles,
	}
}

func (d profileDTO) toPerson() domainauth.Person {
	return domainauth.Person{
		ID:        string(d.ID),
		Nombres:   d.Nombres,
		Apellidos: d.Apellidos,
		Correo:    d.correo(),
	}
}

// decodeProfile maps an extracted JMESPath result onto profileDTO.
// Anything other than a JSON object is a malformed payload.
func decodeProfile(v any) (profileDTO, error) {
	obj, ok := v.(map[string]any)
	if !ok || len(obj) == 0 {
		return profileDTO{}, fmt.Errorf("%w: expected a profile object, got %T", ErrMalformedPayload, v)
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return profileDTO{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var dto profileDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return profileDTO{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return dto, nil
}

func extractProfile(expr string, body any) (profileDTO, error) {
	v, err := search(expr, body)
	if err != nil {
		return profileDTO{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return decodeProfile(v)
}

func extractString(expr string, body any) string {
	v, err := search(expr, body)
	if err != nil || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	default:
		return ""
	}
}
