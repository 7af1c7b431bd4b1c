package linkverify

import (
	"encoding/json"
	"fmt"
	"time"

	"chatlink/internal/models"
)

// Phase is the agent-side lifecycle of one channel's verification attempt.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhasePending Phase = "pending"
	PhaseDone    Phase = "done"
	PhaseError   Phase = "error"
	PhaseExpired Phase = "expired"
)

// PendingInfo is the payload of an attempt waiting for the bot to confirm.
// StartedAt anchors the hard timeout so a resumed attempt never gains
// lifetime.
type PendingInfo struct {
	Nonce     string    `json:"nonce"`
	DeepLink  string    `json:"deep_link"`
	Command   string    `json:"command,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// LinkInfo is the confirmed link carried by a done state.
type LinkInfo struct {
	ChannelID      models.ChannelID `json:"channel_id"`
	ExternalHandle string           `json:"external_handle"`
	DisplayName    string           `json:"display_name,omitempty"`
}

// FailureInfo is the payload of an attempt that stopped short of a link.
type FailureInfo struct {
	Message string `json:"message"`
}

// State is one channel's verification snapshot, a tagged union over Phase:
// exactly the payload matching the phase is set and nothing else. Build
// states through the constructors below; UnmarshalJSON rejects snapshots
// whose payload disagrees with their phase, so an illegal combination can
// neither be built through the package API nor rehydrated from disk.
type State struct {
	Phase   Phase        `json:"phase"`
	Pending *PendingInfo `json:"pending,omitempty"`
	Link    *LinkInfo    `json:"link,omitempty"`
	Failure *FailureInfo `json:"failure,omitempty"`
}

// NewIdle returns the empty state of a channel with no attempt.
func NewIdle() State {
	return State{Phase: PhaseIdle}
}

// NewPending returns a pending state around the issued nonce.
func NewPending(info PendingInfo) State {
	return State{Phase: PhasePending, Pending: &info}
}

// NewDone returns a done state carrying the confirmed link.
func NewDone(link LinkInfo) State {
	return State{Phase: PhaseDone, Link: &link}
}

// NewError returns an error state with the given reason.
func NewError(message string) State {
	return State{Phase: PhaseError, Failure: &FailureInfo{Message: message}}
}

// NewExpired returns an expired state with the given reason.
func NewExpired(message string) State {
	return State{Phase: PhaseExpired, Failure: &FailureInfo{Message: message}}
}

// Message returns the failure reason, empty outside error and expired states.
func (s State) Message() string {
	if s.Failure == nil {
		return ""
	}
	return s.Failure.Message
}

// Terminal reports whether the phase accepts no further transitions except
// an explicit retry.
func (s State) Terminal() bool {
	return s.Phase == PhaseDone || s.Phase == PhaseError || s.Phase == PhaseExpired
}

// validate enforces the phase/payload pairing.
func (s State) validate() error {
	payloads := 0
	if s.Pending != nil {
		payloads++
	}
	if s.Link != nil {
		payloads++
	}
	if s.Failure != nil {
		payloads++
	}

	ok := false
	switch s.Phase {
	case PhaseIdle:
		ok = payloads == 0
	case PhasePending:
		ok = s.Pending != nil && payloads == 1
	case PhaseDone:
		ok = s.Link != nil && payloads == 1
	case PhaseError, PhaseExpired:
		ok = s.Failure != nil && payloads == 1
	}
	if !ok {
		return fmt.Errorf("snapshot payload does not match phase %q", s.Phase)
	}
	return nil
}

// UnmarshalJSON rejects snapshots whose payload disagrees with their phase.
func (s *State) UnmarshalJSON(data []byte) error {
	type plain State
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	next := State(decoded)
	if err := next.validate(); err != nil {
		return err
	}
	*s = next
	return nil
}
