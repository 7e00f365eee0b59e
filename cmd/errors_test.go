package cmd

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
)

func TestDescribeErrorAPIError(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "not authorized to perform ssm:StartSession"}

	assert.Equal(t, "AccessDeniedException: not authorized to perform ssm:StartSession",
		describeError(apiErr))
}

func TestDescribeErrorWrappedAPIError(t *testing.T) {
	apiErr := &smithy.GenericAPIError{Code: "ClusterNotFoundException", Message: "cluster missing"}
	wrapped := fmt.Errorf("list services: %w", apiErr)

	assert.Equal(t, "ClusterNotFoundException: cluster missing", describeError(wrapped))
}

func TestDescribeErrorPlain(t *testing.T) {
	assert.Equal(t, "no profiles found", describeError(errors.New("no profiles found")))
}
