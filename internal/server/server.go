package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	_ "github.com/raysh454/respond/internal/server/docs" // registers the OpenAPI document
	"github.com/raysh454/respond/internal/store"
	"github.com/raysh454/respond/logging"
	"github.com/raysh454/respond/respond"
)

// Server is the HTTP + WebSocket API surface for the records demo.
type Server struct {
	cfg           Config
	store         *store.Store
	formatter     *respond.Formatter
	router        chi.Router
	upgrader      websocket.Upgrader
	logger        logging.Logger
	allowedOrigin string
}

// NewServer wires the router around an existing store and formatter.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Formatter == nil {
		return nil, errors.New("server: formatter is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	origin := cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}

	s := &Server{
		cfg:           cfg,
		store:         cfg.Store,
		formatter:     cfg.Formatter,
		router:        chi.NewRouter(),
		logger:        logger.With(logging.F("component", "server")),
		allowedOrigin: origin,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return origin == "*" || r.Header.Get("Origin") == origin
			},
		},
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	f := s.formatter

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)

	// CORS preflight
	r.Options("/records", s.optionsHandler("GET, POST"))
	r.Options("/records/{id}", s.optionsHandler("GET"))

	r.Method(http.MethodGet, "/healthz", f.AsJSON(s.handleHealth))

	r.Method(http.MethodGet, "/records", f.AsJSONL(s.handleListRecords))
	r.Method(http.MethodPost, "/records", f.AsJSON(s.handleCreateRecord))
	r.Method(http.MethodGet, "/records/{id}", f.AsJSONP(s.handleGetRecord))

	r.Get("/ws/records", s.handleRecordsWS)

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

func (s *Server) optionsHandler(methods string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Methods", methods)
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// HTTPServer creates an *http.Server ready to ListenAndServe.
func (s *Server) HTTPServer() *http.Server {
	var h http.Handler = s
	if s.cfg.EnableH2C {
		h = h2c.NewHandler(s, &http2.Server{})
	}
	readTimeout := s.cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	return &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      0, // allow streaming
		IdleTimeout:       120 * time.Second,
	}
}

func parseLimit(r *http.Request) (int, error) {
	ls := r.URL.Query().Get("limit")
	if ls == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(ls)
	if err != nil || v < 0 {
		return 0, respond.Errorf(http.StatusBadRequest, "limit must be a non-negative integer")
	}
	return v, nil
}

// --- HTTP handlers ---

// handleHealth godoc
// @Summary Health check
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func (s *Server) handleHealth(r *http.Request) (any, error) {
	return map[string]any{"ok": true}, nil
}

// handleListRecords godoc
// @Summary List records as ndjson, or wrapped in a callback
// @Produce application/x-ndjson
// @Param limit query int false "Maximum number of records"
// @Param callback query string false "Callback name"
// @Param jsonl query string false "Callback name (alias)"
// @Success 200 {array} store.Record
// @Failure 400 {object} ErrorResponse
// @Router /records [get]
func (s *Server) handleListRecords(r *http.Request) (any, error) {
	limit, err := parseLimit(r)
	if err != nil {
		return nil, err
	}

	recs, err := s.store.ListRecords(r.Context(), limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	s.logger.Debug("listed records", logging.F("count", len(recs)))
	return recs, nil
}

// handleGetRecord godoc
// @Summary Get one record, optionally as a JSONP callback
// @Produce json
// @Produce application/javascript
// @Param id path string true "Record ID"
// @Param callback query string false "Callback name"
// @Success 200 {object} store.Record
// @Failure 404 {object} ErrorResponse
// @Router /records/{id} [get]
func (s *Server) handleGetRecord(r *http.Request) (any, error) {
	id := chi.URLParam(r, "id")

	rec, err := s.store.GetRecord(r.Context(), id)
	if errors.Is(err, store.ErrRecordNotFound) {
		return nil, respond.NewError(http.StatusNotFound, map[string]any{"error": "record not found", "id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("getting record %s: %w", id, err)
	}
	return rec, nil
}

// handleCreateRecord godoc
// @Summary Create a record
// @Accept json
// @Produce json
// @Param record body CreateRecordRequest true "Record"
// @Success 201 {object} store.Record
// @Failure 400 {object} ErrorResponse
// @Router /records [post]
func (s *Server) handleCreateRecord(r *http.Request) (any, error) {
	var body CreateRecordRequest
	if err := jsoniter.ConfigCompatibleWithStandardLibrary.NewDecoder(r.Body).Decode(&body); err != nil {
		s.logger.Warn("decoding create record body", logging.Err(err))
		return nil, respond.Errorf(http.StatusBadRequest, "invalid JSON")
	}

	rec, err := s.store.CreateRecord(r.Context(), body.Name, body.Val)
	if errors.Is(err, store.ErrInvalidRecord) {
		return nil, respond.Errorf(http.StatusBadRequest, "%s", err.Error())
	}
	if err != nil {
		return nil, fmt.Errorf("creating record: %w", err)
	}

	s.logger.Info("created record", logging.F("id", rec.ID))
	return respond.Result{
		Value:  rec,
		Status: http.StatusCreated,
		Header: http.Header{"Location": {"/records/" + rec.ID}},
	}, nil
}

// WebSockets

// handleRecordsWS streams records as one compact JSON document per text
// message, then closes the connection normally.
func (s *Server) handleRecordsWS(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		_ = s.formatter.ErrorResponse(r, err).Write(w)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrading to websocket", logging.Err(err))
		return
	}
	defer conn.Close()

	recs, err := s.store.ListRecords(r.Context(), limit)
	if err != nil {
		s.logger.Warn("listing records", logging.Err(err))
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "listing records"))
		return
	}

	for _, rec := range recs {
		line, err := respond.Marshal(rec)
		if err != nil {
			s.logger.Warn("encoding record", logging.F("id", rec.ID), logging.Err(err))
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, line); err != nil {
			// Assume client disconnected
			s.logger.Debug("websocket write", logging.Err(err))
			return
		}
	}

	s.logger.Info("streamed records", logging.F("count", len(recs)))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
