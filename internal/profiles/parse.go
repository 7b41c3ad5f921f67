package profiles

import (
	"context"
	"strings"

	"gopkg.in/ini.v1"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
	"github.com/cloudscope/cloudscope/types"
)

// SourceLookup resolves a stored profile by name, used when a config
// paste chains a role onto an existing profile's credentials.
type SourceLookup func(ctx context.Context, name string) (*types.Profile, error)

// ParseCredentials turns a pasted credentials file into an unsaved
// profile. Text without a section header is treated as the body of a
// [default] section; only the first section is imported.
func ParseCredentials(text, defaultRegion string) (*types.Profile, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "no credentials provided")
	}
	if !strings.HasPrefix(text, "[") {
		text = "[default]\n" + text
	}

	file, err := ini.Load([]byte(text))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeValidation, "invalid credentials format")
	}

	section := firstNamedSection(file)
	if section == nil {
		return nil, apperrors.New(apperrors.CodeValidation, "no valid profile found in credentials")
	}

	accessKey := strings.TrimSpace(section.Key("aws_access_key_id").String())
	secretKey := strings.TrimSpace(section.Key("aws_secret_access_key").String())
	if accessKey == "" || secretKey == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "access key id and secret access key are required")
	}

	return &types.Profile{
		Name:            sectionProfileName(section.Name()),
		AccessKeyID:     accessKey,
		SecretAccessKey: secretKey,
		SessionToken:    strings.TrimSpace(section.Key("aws_session_token").String()),
		Region:          sectionRegion(section, defaultRegion),
	}, nil
}

// ParseConfig turns a pasted config file into unsaved role-chained
// profiles. Sections without both role_arn and source_profile are
// skipped (a config file holds no credentials of its own); a section
// naming an unknown source profile is reported in the returned problem
// list rather than failing the whole paste.
func ParseConfig(ctx context.Context, text string, lookup SourceLookup) ([]types.Profile, []string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, apperrors.New(apperrors.CodeValidation, "no config provided")
	}

	file, err := ini.Load([]byte(text))
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.CodeValidation, "invalid config format")
	}

	var created []types.Profile
	var problems []string

	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		name := sectionProfileName(section.Name())

		roleArn := strings.TrimSpace(section.Key("role_arn").String())
		sourceName := strings.TrimSpace(section.Key("source_profile").String())
		if roleArn == "" || sourceName == "" {
			continue
		}

		source, err := lookup(ctx, sourceName)
		if err != nil || source == nil {
			problems = append(problems, `profile "`+name+`": source profile "`+sourceName+`" not found`)
			continue
		}

		created = append(created, FromSource(source, name, roleArn, sectionRegion(section, "")))
	}

	return created, problems, nil
}

// FromSource builds a profile that borrows the source's static keys and
// stores a role directive as its session token.
func FromSource(source *types.Profile, name, roleArn, region string) types.Profile {
	token, _ := types.RoleDirectiveToken(roleArn, "")
	if region == "" {
		region = source.Region
	}
	return types.Profile{
		Name:            name,
		AccessKeyID:     source.AccessKeyID,
		SecretAccessKey: source.SecretAccessKey,
		SessionToken:    token,
		Region:          region,
	}
}

// firstNamedSection returns the first real section of the file, nil
// when only the implicit default section exists.
func firstNamedSection(file *ini.File) *ini.Section {
	for _, section := range file.Sections() {
		if section.Name() == ini.DefaultSection {
			continue
		}
		return section
	}
	return nil
}

// sectionProfileName strips the "profile " prefix config files use and
// falls back to "default" for an empty remainder.
func sectionProfileName(section string) string {
	name := strings.TrimSpace(strings.TrimPrefix(section, "profile "))
	if name == "" {
		return "default"
	}
	return name
}

func sectionRegion(section *ini.Section, fallback string) string {
	region := strings.TrimSpace(section.Key("region").String())
	if region != "" {
		return region
	}
	if fallback != "" {
		return fallback
	}
	return "us-east-1"
}
