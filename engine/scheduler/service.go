// Package scheduler exposes the conversational scheduling engine: one entry
// point that turns an inbound utterance into reply messages and a single
// dialogue-state write. Callers must serialize utterances belonging to the
// same conversation; different conversations are independent.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zapagenda/engine/engine/contract"
	enginenode "github.com/zapagenda/engine/engine/nodes"
	"github.com/zapagenda/engine/engine/state"
)

var (
	ErrInvalidMessage      = enginenode.ErrInvalidMessage
	ErrInvalidConversation = enginenode.ErrInvalidConversation
	ErrInvalidOrg          = enginenode.ErrInvalidOrg
)

// Config tunes the engine per deployment.
type Config struct {
	Timezone       string        `envconfig:"TIMEZONE" split_words:"true" default:"America/Sao_Paulo"`
	GatewayTimeout time.Duration `envconfig:"GATEWAY_TIMEOUT" split_words:"true" default:"8s"`
}

// Engine is the scheduling orchestrator. All cross-call state lives in the
// injected Store; the engine itself holds no mutable conversation data.
type Engine struct {
	store         state.Store
	gateway       contract.CalendarGateway
	catalogSource contract.CatalogSource

	location       *time.Location
	gatewayTimeout time.Duration

	graphRunner compose.Runnable[enginenode.GraphInput, enginenode.GraphOutput]

	now    func() time.Time
	newKey func() string
}

func New(
	store state.Store,
	gateway contract.CalendarGateway,
	catalogSource contract.CatalogSource,
	cfg Config,
) (*Engine, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if gateway == nil {
		return nil, errors.New("calendar gateway is required")
	}
	if catalogSource == nil {
		return nil, errors.New("catalog source is required")
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "America/Sao_Paulo"
	}
	location, err := time.LoadLocation(tz)
	if err != nil {
		return nil, err
	}

	timeout := cfg.GatewayTimeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}

	e := &Engine{
		store:          store,
		gateway:        gateway,
		catalogSource:  catalogSource,
		location:       location,
		gatewayTimeout: timeout,
		now:            time.Now,
		newKey:         uuid.NewString,
	}

	graphRunner, err := e.compileHandleIncomingGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// HandleIncoming processes one utterance. Handled=false means the message
// carried no scheduling intent and no flow was active, so the caller may
// route it elsewhere.
func (e *Engine) HandleIncoming(ctx context.Context, msg contract.IncomingMessage) (contract.Result, error) {
	out, err := e.graphRunner.Invoke(ctx, enginenode.GraphInput{Message: msg})
	if err != nil {
		log.Error().Err(err).
			Str("org_id", msg.OrgID).
			Str("conversation_id", msg.ConversationID).
			Msg("handle incoming failed")
		return contract.Result{}, err
	}
	return out.Result, nil
}
