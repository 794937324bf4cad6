package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationState_Labels(t *testing.T) {
	tests := []struct {
		state OperationState
		want  string
	}{
		{StateReady, "READY"},
		{StateSuccess, "SUCCESS"},
		{StatePasswordReset, "PASSWORD_RESET"},
		{StateUserCancelled, "USER_CANCELLED_OPERATION"},
		{StateInteractionRequired, "USER_INTERACTION_REQUIRED"},
		{StateClientError, "CLIENT_ERROR"},
		{StateServiceError, "SERVICE_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
			text, err := tt.state.MarshalText()
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(text))
		})
	}

	_, err := OperationState(99).MarshalText()
	assert.Error(t, err)
}

func TestOperationResult_MarshalJSON(t *testing.T) {
	raw, err := json.Marshal(OperationResult{
		Source: SourceInit,
		Reason: StateSuccess,
		Tag:    "tag-1",
		Seq:    3,
	})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, map[string]any{
		"source": "init",
		"reason": "SUCCESS",
		"data":   "",
		"tag":    "tag-1",
		"seq":    float64(3),
	}, got)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want OperationState
		kind string
	}{
		{"password reset signature", errors.New("AADB2C90118: The user has forgotten their password."), StatePasswordReset, KindPasswordReset},
		{"password reset sentinel", fmt.Errorf("%w: reset", ErrPasswordReset), StatePasswordReset, KindPasswordReset},
		{"user cancelled", fmt.Errorf("%w: closed", ErrUserCancelled), StateUserCancelled, KindUserCancelled},
		{"interaction required", fmt.Errorf("%w: expired", ErrInteractionRequired), StateInteractionRequired, KindInteractionRequired},
		{"service failure", fmt.Errorf("%w: 503", ErrServiceFailure), StateServiceError, KindService},
		{"no authority", ErrNoAuthority, StateClientError, KindClient},
		{"unknown subject", ErrSubjectNotFound, StateClientError, KindClient},
		{"anything else", errors.New("boom"), StateClientError, KindUnclassified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
			assert.Equal(t, tt.kind, ErrorKind(tt.err))
		})
	}
}

func TestErrorPayload(t *testing.T) {
	payload := ErrorPayload(errors.New("boom"))
	assert.Equal(t, "unclassified", payload["kind"])
	assert.Equal(t, "boom", payload["message"])
}

func TestConfiguration_DefaultAuthority(t *testing.T) {
	cfg := &Configuration{Authorities: []Authority{
		{URL: "https://t.b2clogin.com/t.onmicrosoft.com/B2C_1_signin/", Type: "B2C", IsDefault: true},
		{URL: "https://t.b2clogin.com/t.onmicrosoft.com/B2C_1_reset/", Type: "B2C"},
	}}

	def, ok := cfg.DefaultAuthority()
	require.True(t, ok)
	assert.Equal(t, cfg.Authorities[0], def)
	assert.Equal(t, []string{cfg.Authorities[0].URL, cfg.Authorities[1].URL}, cfg.AuthorityURLs())

	var missing *Configuration
	_, ok = missing.DefaultAuthority()
	assert.False(t, ok)
}
