package profiles

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/types"
)

// AccountResolver reports the account id behind a profile's
// credentials. (*aws.Resolver).AccountID satisfies it.
type AccountResolver func(ctx context.Context, profile *types.Profile) (string, error)

// roleARNPrefix is the only ARN shape accepted in pasted directives.
const roleARNPrefix = "arn:aws:iam::"

// ResolveSessionToken decides what the new profile stores in its
// session-token column. An "existing" role resolves the account behind
// the static keys and builds the role ARN from it; a "custom" role
// normalizes a pasted directive when it looks like one and otherwise
// passes the paste through as a literal token; "none" stores the direct
// token, which may be empty.
func ResolveSessionToken(ctx context.Context, in CreateProfileInput, account AccountResolver) (string, error) {
	switch in.RoleType {
	case RoleTypeExisting:
		roleName := strings.TrimSpace(in.RoleName)
		if roleName == "" {
			return "", apperrors.New(apperrors.CodeValidation, "role name is required when using an existing role")
		}
		arn, err := buildRoleARN(ctx, &types.Profile{
			AccessKeyID:     in.AccessKeyID,
			SecretAccessKey: in.SecretAccessKey,
			Region:          in.Region,
		}, roleName, account)
		if err != nil {
			return "", err
		}
		return types.RoleDirectiveToken(arn, "")

	case RoleTypeCustom:
		if in.SessionToken == "" {
			return in.DirectSessionToken, nil
		}
		return normalizeDirective(in.SessionToken)

	default:
		return in.DirectSessionToken, nil
	}
}

// FromRole builds a profile that assumes a role with the source
// profile's credentials. The source's region carries over.
func FromRole(ctx context.Context, in FromRoleInput, source *types.Profile, account AccountResolver) (*types.Profile, error) {
	var token string

	switch in.RoleType {
	case RoleTypeExisting:
		roleName := strings.TrimSpace(in.RoleName)
		if roleName == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "role name is required for an existing role")
		}
		arn, err := buildRoleARN(ctx, &types.Profile{
			AccessKeyID:     source.AccessKeyID,
			SecretAccessKey: source.SecretAccessKey,
			Region:          source.Region,
		}, roleName, account)
		if err != nil {
			return nil, err
		}
		token, err = types.RoleDirectiveToken(arn, "")
		if err != nil {
			return nil, err
		}

	case RoleTypeCustom:
		raw := strings.TrimSpace(in.SessionToken)
		if raw == "" {
			return nil, apperrors.New(apperrors.CodeValidation, "role configuration (JSON) is required for a custom role")
		}
		var err error
		token, err = strictDirective(raw)
		if err != nil {
			return nil, err
		}

	default:
		return nil, apperrors.Newf(apperrors.CodeValidation, "unknown role type %q", in.RoleType)
	}

	return &types.Profile{
		Name:            strings.TrimSpace(in.Name),
		AccessKeyID:     source.AccessKeyID,
		SecretAccessKey: source.SecretAccessKey,
		SessionToken:    token,
		Region:          source.Region,
	}, nil
}

// buildRoleARN resolves the account id behind the given static
// credentials and composes the role's ARN. The probe profile carries no
// session token: the keys themselves must identify the account.
func buildRoleARN(ctx context.Context, probe *types.Profile, roleName string, account AccountResolver) (string, error) {
	accountID, err := account(ctx, probe)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeValidation, "cannot resolve account for source credentials")
	}
	return fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, roleName), nil
}

// directive mirrors the stored JSON shape.
type directive struct {
	RoleArn         string `json:"RoleArn"`
	RoleSessionName string `json:"RoleSessionName,omitempty"`
}

// normalizeDirective is the lenient form used on direct creation:
// anything that does not decode as a directive is a literal session
// token, but a decodable directive with a malformed ARN is rejected.
func normalizeDirective(raw string) (string, error) {
	var d directive
	if err := json.Unmarshal([]byte(raw), &d); err != nil || d.RoleArn == "" {
		return raw, nil
	}
	if !strings.HasPrefix(d.RoleArn, roleARNPrefix) {
		return "", apperrors.New(apperrors.CodeValidation, "invalid role ARN format")
	}
	return types.RoleDirectiveToken(d.RoleArn, d.RoleSessionName)
}

// strictDirective is the form used by the from-role flow: the paste
// must be a directive.
func strictDirective(raw string) (string, error) {
	var d directive
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeValidation, "invalid JSON")
	}
	if d.RoleArn == "" {
		return "", apperrors.New(apperrors.CodeValidation, "JSON must include RoleArn")
	}
	if !strings.HasPrefix(d.RoleArn, roleARNPrefix) {
		return "", apperrors.New(apperrors.CodeValidation, "invalid RoleArn format")
	}
	return types.RoleDirectiveToken(d.RoleArn, d.RoleSessionName)
}
