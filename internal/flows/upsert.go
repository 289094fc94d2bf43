package flows

import (
	"github.com/MrEthical07/goAuthFlow/autherr"
	"github.com/MrEthical07/goAuthFlow/internal"
)

// BatchMessage is the caller-supplied view of one upsert entry needed for
// shape validation: its name and its (possibly empty) status string.
type BatchMessage struct {
	Name      string
	StatusMsg string
}

// UpsertPlan is the deterministic result of validating a batch against a
// challenge def: the exact prefix of message names that must already be Ok in
// the store, and the session/challenge outcome the batch implies.
type UpsertPlan struct {
	PriorPrefix []string
	Outcome     string
}

// ValidateUpsertBatch checks the batch shape against the def's message
// sequence before any storage round trip:
//
//   - every name must be declared by the def, and the batch must be a
//     contiguous run of the sequence in order;
//   - only the last entry may be pending (empty status) or non-Ok;
//   - every non-empty status must be well-formed.
//
// The returned plan carries what the transactional writer re-verifies under
// lock.
func ValidateUpsertBatch(sequence []string, batch []BatchMessage) (*UpsertPlan, error) {
	if len(batch) == 0 {
		return nil, autherr.NewInvalidArg("messages must not be empty")
	}

	prev := -1
	for i, msg := range batch {
		pos := indexOf(sequence, msg.Name)
		if pos < 0 {
			return nil, autherr.NewInvalidArg("message %q is not appropriate for the challenge", msg.Name)
		}
		if prev >= 0 && pos != prev+1 {
			return nil, autherr.NewInvalidArg("messages are out of order")
		}
		prev = pos

		if msg.StatusMsg != "" && !internal.ValidStatusMsg(msg.StatusMsg) {
			return nil, autherr.NewInvalidArg("statusMsg is malformed: %q", msg.StatusMsg)
		}
		if i < len(batch)-1 && msg.StatusMsg != statusOk {
			return nil, autherr.NewInvalidArg("only the last message in a batch may carry a non-Ok status")
		}
	}

	first := indexOf(sequence, batch[0].Name)
	plan := UpsertPlan{PriorPrefix: sequence[:first]}

	last := batch[len(batch)-1]
	switch {
	case last.StatusMsg == "":
		plan.Outcome = outcomePending
	case last.StatusMsg != statusOk:
		plan.Outcome = outcomeAborted
	case first+len(batch) == len(sequence):
		plan.Outcome = outcomeSucceeded
	default:
		plan.Outcome = outcomePending
	}
	return &plan, nil
}

func indexOf(sequence []string, name string) int {
	for i, s := range sequence {
		if s == name {
			return i
		}
	}
	return -1
}
