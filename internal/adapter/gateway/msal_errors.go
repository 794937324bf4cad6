package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"b2c-hub/internal/domain"

	msalerrors "github.com/AzureAD/microsoft-authentication-library-for-go/apps/errors"
)

// userCancelledCode is returned by B2C when the user backs out of a policy.
const userCancelledCode = "AADB2C90091"

// classifyMSALError wraps an MSAL failure with the domain sentinel matching
// its meaning. Errors that fit no sentinel are returned unchanged.
func classifyMSALError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	switch {
	case errors.Is(err, context.Canceled), strings.Contains(msg, userCancelledCode):
		return fmt.Errorf("%w: %w", domain.ErrUserCancelled, err)
	case strings.Contains(msg, domain.PasswordResetCode):
		return fmt.Errorf("%w: %w", domain.ErrPasswordReset, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", domain.ErrServiceFailure, err)
	}

	var callErr msalerrors.CallErr
	if errors.As(err, &callErr) && callErr.Resp != nil && callErr.Resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d: %w", domain.ErrServiceFailure, callErr.Resp.StatusCode, err)
	}

	if strings.Contains(msg, "interaction_required") || strings.Contains(msg, "invalid_grant") {
		return fmt.Errorf("%w: %w", domain.ErrInteractionRequired, err)
	}
	return err
}
