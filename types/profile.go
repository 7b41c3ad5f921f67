package types

import (
	"encoding/json"
	"time"
)

// DefaultRoleSessionName is used when a role directive omits one.
const DefaultRoleSessionName = "aws_inventory_session"

// Profile is a stored AWS credential + configuration bundle. Secret
// fields never serialize; outward projections go through Redacted.
type Profile struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	CustomName      string    `json:"custom_name,omitempty"`
	AccountNumber   string    `json:"account_number,omitempty"`
	AccessKeyID     string    `json:"-"`
	SecretAccessKey string    `json:"-"`
	SessionToken    string    `json:"-"`
	Region          string    `json:"aws_region"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DisplayName prefers the custom name when set.
func (p *Profile) DisplayName() string {
	if p.CustomName != "" {
		return p.CustomName
	}
	return p.Name
}

// Redacted returns a copy safe for listings: credential fields blanked,
// everything else intact.
func (p *Profile) Redacted() Profile {
	out := *p
	out.AccessKeyID = ""
	out.SecretAccessKey = ""
	out.SessionToken = ""
	return out
}

// TokenKind discriminates how a stored session token field is used.
type TokenKind int

const (
	// TokenNone means no session token stored.
	TokenNone TokenKind = iota
	// TokenRaw means the field is a literal session token.
	TokenRaw
	// TokenRole means the field carries a role-assumption directive.
	TokenRole
)

// TokenDirective is the decoded form of the session-token field: either
// a literal token or a role-assumption directive. Profiles store role
// directives as a JSON object in the token column; that wire format is
// decoded here, once, and nowhere else.
type TokenDirective struct {
	Kind            TokenKind
	RawToken        string
	RoleArn         string
	RoleSessionName string
}

// roleDirective is the stored JSON shape.
type roleDirective struct {
	RoleArn         string `json:"RoleArn"`
	RoleSessionName string `json:"RoleSessionName,omitempty"`
}

// TokenDirective decodes the profile's session-token field. A JSON
// object with a RoleArn becomes a role directive, session name
// defaulted; any other content, including JSON that is not such an
// object, is a literal token. Malformed JSON is not an error.
func (p *Profile) TokenDirective() TokenDirective {
	if p.SessionToken == "" {
		return TokenDirective{Kind: TokenNone}
	}

	var role roleDirective
	if err := json.Unmarshal([]byte(p.SessionToken), &role); err != nil || role.RoleArn == "" {
		return TokenDirective{Kind: TokenRaw, RawToken: p.SessionToken}
	}

	if role.RoleSessionName == "" {
		role.RoleSessionName = DefaultRoleSessionName
	}
	return TokenDirective{
		Kind:            TokenRole,
		RoleArn:         role.RoleArn,
		RoleSessionName: role.RoleSessionName,
	}
}

// RoleDirectiveToken encodes a role-assumption directive into the wire
// format stored in the session-token column.
func RoleDirectiveToken(roleArn, sessionName string) (string, error) {
	if sessionName == "" {
		sessionName = DefaultRoleSessionName
	}
	raw, err := json.Marshal(roleDirective{RoleArn: roleArn, RoleSessionName: sessionName})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
