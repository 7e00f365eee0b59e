package cmd

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// describeError renders AWS API failures as their error code and message
// rather than the full wrapped operation chain, which is noise at the menu.
func describeError(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("%s: %s", apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return err.Error()
}
