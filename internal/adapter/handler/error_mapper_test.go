package handler

import (
	"net/http"
	"testing"

	"b2c-hub/internal/adapter/channel"

	"github.com/stretchr/testify/assert"
)

func TestStatusForMethodError(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		wantCode int
	}{
		{"invalid arguments", channel.CodeInvalidArguments, http.StatusBadRequest},
		{"not initialized", channel.CodeNotInitialized, http.StatusConflict},
		{"subject not exist", channel.CodeSubjectNotExist, http.StatusNotFound},
		{"subject not authenticated", channel.CodeSubjectNotAuthenticated, http.StatusConflict},
		{"not implemented", channel.CodeNotImplemented, http.StatusNotImplemented},
		{"internal", channel.CodeInternal, http.StatusInternalServerError},
		{"unknown code", "Mystery", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantCode, statusForMethodError(&channel.MethodError{Code: tt.code}))
		})
	}
}
