package enginenode

import (
	"context"
	"errors"
	"fmt"

	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/state"
)

// LoadState reads the conversation's dialogue state. A missing state is not
// an error: it means no flow is active and intent detection decides the
// turn.
func LoadState(ctx context.Context, in *GraphState, store state.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contract.ErrValidation)
	}

	st, err := store.Load(ctx, in.Message.ConversationID)
	if err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			in.Session = nil
			return in, nil
		}
		return nil, fmt.Errorf("load dialogue state: %w", err)
	}

	in.Session = st
	return in, nil
}
