package handlers

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"huddled/internal/store"
	"huddled/pkg/bus"
	"huddled/pkg/render"
)

// Config controls runtime behaviour for the API handlers.
type Config struct {
	// BaseURL is the public origin used to build shareable invite links.
	BaseURL        string
	AllowedOrigins []string
}

// API wires dependencies, template renderer, and configuration for HTTP
// handlers.
type API struct {
	store    *store.Store
	renderer *render.Engine
	bus      *bus.Bus
	config   Config
	log      zerolog.Logger
}

// New initialises the API layer. The bus may be nil when no event
// backbone is configured.
func New(st *store.Store, renderer *render.Engine, eventBus *bus.Bus, cfg Config, logger zerolog.Logger) (*API, error) {
	if st == nil {
		return nil, errors.New("store is required")
	}
	if st.ORM == nil {
		return nil, errors.New("store ORM is required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &API{
		store:    st,
		renderer: renderer,
		bus:      eventBus,
		config:   cfg,
		log:      logger,
	}, nil
}

func (a *API) shareURL(code string) string {
	return a.config.BaseURL + "/g/" + code
}

// storeNow uses the store's clock so event timestamps line up with
// persisted ones.
func (a *API) storeNow() time.Time {
	if a.store.Now != nil {
		return a.store.Now()
	}
	return time.Now().UTC()
}
