package aws

import (
	"context"
	"errors"

	"github.com/aws/smithy-go"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
)

// authErrorCodes are provider codes meaning the credentials themselves
// were refused, not just one call.
var authErrorCodes = map[string]struct{}{
	"AuthFailure":                 {},
	"UnrecognizedClientException": {},
	"InvalidClientTokenId":        {},
	"AccessDenied":                {},
	"AccessDeniedException":       {},
	"ExpiredToken":                {},
	"SignatureDoesNotMatch":       {},
}

// classify maps an SDK error onto the application taxonomy, tagging the
// failing service and operation.
func classify(err error, service, operation string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrapf(err, apperrors.CodeProvider, "%s %s interrupted", service, operation)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if _, ok := authErrorCodes[apiErr.ErrorCode()]; ok {
			return apperrors.Wrapf(err, apperrors.CodeAuthentication, "%s %s failed", service, operation)
		}
	}

	return apperrors.Wrapf(err, apperrors.CodeProvider, "%s %s failed", service, operation)
}
