package handler

import (
	"net/http"

	"b2c-hub/internal/adapter/channel"
)

// statusForMethodError picks the HTTP status a method error is sent with.
// The body always carries the error code, so the status is advisory.
func statusForMethodError(merr *channel.MethodError) int {
	switch merr.Code {
	case channel.CodeInvalidArguments:
		return http.StatusBadRequest
	case channel.CodeNotInitialized, channel.CodeSubjectNotAuthenticated:
		return http.StatusConflict
	case channel.CodeSubjectNotExist:
		return http.StatusNotFound
	case channel.CodeNotImplemented:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
