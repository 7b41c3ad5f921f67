package errors

// Code classifies an error for propagation policy decisions: only
// configuration and authentication failures abort a request, provider
// and cache failures degrade.
type Code string

const (
	CodeUnknown        Code = "UNKNOWN"
	CodeConfiguration  Code = "CONFIGURATION_ERROR"
	CodeAuthentication Code = "AUTHENTICATION_ERROR"
	CodeProvider       Code = "PROVIDER_ERROR"
	CodeCacheBackend   Code = "CACHE_BACKEND_ERROR"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeValidation     Code = "VALIDATION_ERROR"
)

func (c Code) String() string {
	return string(c)
}
