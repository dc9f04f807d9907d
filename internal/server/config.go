package server

import (
	"time"

	"github.com/raysh454/respond/internal/store"
	"github.com/raysh454/respond/logging"
	"github.com/raysh454/respond/respond"
)

type Config struct {
	// ListenAddr is the HTTP listen address for the API server.
	ListenAddr string

	// EnableH2C additionally accepts HTTP/2 without TLS.
	EnableH2C bool

	ReadTimeout time.Duration

	// AllowedOrigin is sent as Access-Control-Allow-Origin; empty means "*".
	AllowedOrigin string

	Store     *store.Store
	Formatter *respond.Formatter
	Logger    logging.Logger
}
