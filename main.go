package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"github.com/zapagenda/engine/engine/calendar"
	"github.com/zapagenda/engine/engine/catalog"
	"github.com/zapagenda/engine/engine/contract"
	"github.com/zapagenda/engine/engine/scheduler"
	"github.com/zapagenda/engine/engine/state"
	configx "github.com/zapagenda/engine/pkg/config"
	logx "github.com/zapagenda/engine/pkg/logger"
)

type ServerConfig struct {
	Addr            string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" split_words:"true" default:"10s"`
}

type webhookRequest struct {
	OrgID          string `json:"org_id"`
	ConversationID string `json:"conversation_id"`
	Text           string `json:"text"`
	Contact        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"contact"`
}

type webhookResponse struct {
	Handled  bool     `json:"handled"`
	Messages []string `json:"messages"`
}

func main() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))

	redisCfg := configx.MustNew[state.UpstashRedisConfig]("REDIS")
	store, err := state.NewUpstashRedisStore(*redisCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init dialogue state store")
	}

	catalogCfg := configx.MustNew[catalog.PostgresConfig]("CATALOG")
	repo, err := catalog.NewRepository(*catalogCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init catalog repository")
	}
	defer repo.Close()

	calendarCfg := configx.MustNew[calendar.Config]("CALENDAR")
	gateway, err := calendar.NewClient(*calendarCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init calendar client")
	}

	engineCfg := configx.MustNew[scheduler.Config]("ENGINE")
	engine, err := scheduler.New(store, gateway, repo, *engineCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("init scheduling engine")
	}

	serverCfg := configx.MustNew[ServerConfig]("SERVER")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/healthz", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.POST("/v1/webhook", handleWebhook(engine))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", serverCfg.Addr).Msg("listening")
		if err := e.Start(serverCfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverCfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}

func handleWebhook(engine *scheduler.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req webhookRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
		}

		res, err := engine.HandleIncoming(c.Request().Context(), contract.IncomingMessage{
			OrgID:          req.OrgID,
			ConversationID: req.ConversationID,
			Text:           req.Text,
			Contact:        contract.Contact{ID: req.Contact.ID, Name: req.Contact.Name},
		})
		if err != nil {
			switch {
			case errors.Is(err, scheduler.ErrInvalidMessage),
				errors.Is(err, scheduler.ErrInvalidConversation),
				errors.Is(err, scheduler.ErrInvalidOrg):
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			default:
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}
		}

		texts := make([]string, 0, len(res.Messages))
		for _, m := range res.Messages {
			texts = append(texts, m.Text)
		}
		return c.JSON(http.StatusOK, webhookResponse{Handled: res.Handled, Messages: texts})
	}
}
