package enginenode

import (
	"context"
	"fmt"

	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/flows"
	"github.com/zapagenda/engine/engine/state"
)

// PersistState performs the turn's single state write: save the advanced
// state, clear it on terminal branches, or leave it untouched on retryable
// turns.
func PersistState(ctx context.Context, in *GraphState, store state.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contract.ErrValidation)
	}

	switch in.Turn.Persist {
	case flows.PersistNone:
		return in, nil
	case flows.PersistClear:
		if err := store.Delete(ctx, in.Message.ConversationID); err != nil {
			return nil, fmt.Errorf("clear dialogue state: %w", err)
		}
		return in, nil
	case flows.PersistSave:
		st := in.Turn.State
		if st == nil {
			return nil, fmt.Errorf("%w: save requested with nil state", contract.ErrValidation)
		}
		st.Touch(in.Now)
		if err := st.Validate(); err != nil {
			return nil, fmt.Errorf("state validation failed: %w", err)
		}
		if err := store.Save(ctx, st); err != nil {
			return nil, fmt.Errorf("save dialogue state: %w", err)
		}
		return in, nil
	default:
		return nil, fmt.Errorf("%w: unknown persist mode %d", contract.ErrValidation, in.Turn.Persist)
	}
}
