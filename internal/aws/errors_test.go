package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/cloudscope/cloudscope/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.Code
	}{
		{"auth failure", &smithy.GenericAPIError{Code: "AuthFailure"}, apperrors.CodeAuthentication},
		{"bad token", &smithy.GenericAPIError{Code: "InvalidClientTokenId"}, apperrors.CodeAuthentication},
		{"expired token", &smithy.GenericAPIError{Code: "ExpiredToken"}, apperrors.CodeAuthentication},
		{"access denied", &smithy.GenericAPIError{Code: "AccessDenied"}, apperrors.CodeAuthentication},
		{"throttling", &smithy.GenericAPIError{Code: "Throttling"}, apperrors.CodeProvider},
		{"plain error", errors.New("connection reset"), apperrors.CodeProvider},
		{"canceled", context.Canceled, apperrors.CodeProvider},
		{"deadline", context.DeadlineExceeded, apperrors.CodeProvider},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(tt.err, "ec2", "DescribeInstances")
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestClassify_Nil(t *testing.T) {
	assert.NoError(t, classify(nil, "ec2", "DescribeInstances"))
}

func TestClassify_PreservesCause(t *testing.T) {
	cause := &smithy.GenericAPIError{Code: "AccessDenied", Message: "nope"}
	err := classify(cause, "sts", "GetCallerIdentity")

	var apiErr smithy.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "AccessDenied", apiErr.ErrorCode())
	assert.Contains(t, err.Error(), "sts GetCallerIdentity failed")
}
