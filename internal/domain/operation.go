package domain

import (
	"encoding/json"
	"fmt"
)

// OperationState is the outcome every asynchronous operation resolves to.
type OperationState int

const (
	StateReady OperationState = iota
	StateSuccess
	StatePasswordReset
	StateUserCancelled
	StateInteractionRequired
	StateClientError
	StateServiceError
)

var stateLabels = [...]string{
	StateReady:               "READY",
	StateSuccess:             "SUCCESS",
	StatePasswordReset:       "PASSWORD_RESET",
	StateUserCancelled:       "USER_CANCELLED_OPERATION",
	StateInteractionRequired: "USER_INTERACTION_REQUIRED",
	StateClientError:         "CLIENT_ERROR",
	StateServiceError:        "SERVICE_ERROR",
}

// String returns the wire label of the state.
func (s OperationState) String() string {
	if s < 0 || int(s) >= len(stateLabels) {
		return fmt.Sprintf("OperationState(%d)", int(s))
	}
	return stateLabels[s]
}

// MarshalText encodes the state as its wire label.
func (s OperationState) MarshalText() ([]byte, error) {
	if s < 0 || int(s) >= len(stateLabels) {
		return nil, fmt.Errorf("unknown operation state %d", int(s))
	}
	return []byte(stateLabels[s]), nil
}

// Operation sources reported in events.
const (
	SourceInit                     = "init"
	SourcePolicyTriggerSilently    = "policy_trigger_silently"
	SourcePolicyTriggerInteractive = "policy_trigger_interactive"
	SourceSignOut                  = "sign_out"
)

// OperationResult is the event emitted once per completed operation.
// Seq increases strictly across every event of a provider.
type OperationResult struct {
	Source string
	Reason OperationState
	Data   any
	Tag    string
	Seq    uint64
}

type operationResultJSON struct {
	Source string         `json:"source"`
	Reason OperationState `json:"reason"`
	Data   any            `json:"data"`
	Tag    string         `json:"tag"`
	Seq    uint64         `json:"seq"`
}

// MarshalJSON encodes the event envelope. Missing data is sent as "".
func (r OperationResult) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = ""
	}
	return json.Marshal(operationResultJSON{
		Source: r.Source,
		Reason: r.Reason,
		Data:   data,
		Tag:    r.Tag,
		Seq:    r.Seq,
	})
}
