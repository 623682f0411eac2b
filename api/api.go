package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ENSWatch/domain"
	"ENSWatch/ens"
	"ENSWatch/internal/app"
)

// Backend is the part of app.Service the HTTP surface calls.
type Backend interface {
	Handle(ctx context.Context, req app.Request) (any, error)
	List(ctx context.Context) (*domain.Watchlist, error)
	Lookup(ctx context.Context, input string) (string, domain.Record, error)
}

// Config is the api section of the config file.
type Config struct {
	// ListenAddr is the address to listen on
	ListenAddr string
	// RPS is the per-client rate limit
	RPS float64
	// Logger is the logger to use
	Logger *zap.Logger
}

// API serves the RPC, cron and read-only routes. It won't start till ListenAndServe is called.
type API struct {
	*echo.Echo
	Backend Backend
	C       Config
}

// RPCRequest is the body of POST /rpc and POST /cron.
type RPCRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

type lookupResponse struct {
	Label string        `json:"label"`
	ID    string        `json:"tokenId"`
	Rec   domain.Record `json:"record"`
}

func NewAPI(config Config, backend Backend) *API {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api := &API{
		Echo:    e,
		Backend: backend,
		C:       config,
	}
	api.addMiddlewares()
	api.addPaths()
	return api
}

// ListenAndServe blocks until the server stops. http.ErrServerClosed is not an error.
func (api *API) ListenAndServe() error {
	api.C.Logger.Info("api listening", zap.String("addr", api.C.ListenAddr))
	if err := api.Start(api.C.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (api *API) addMiddlewares() {
	// log first, then rate limit
	api.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			api.C.Logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))
	if api.C.RPS > 0 {
		api.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(api.C.RPS))))
	}
}

func (api *API) addPaths() {
	// $ curl -XPOST http://127.0.0.1:8080/rpc -d '{"method":"addOrRemoveENSDomain","params":{"ensDomain":"vitalik"}}'
	api.POST("/rpc", api.rpc)
	// $ curl -XPOST http://127.0.0.1:8080/cron -d '{"method":"checkExpirationDate"}'
	api.POST("/cron", api.cron)
	api.GET("/watchlist", api.watchlist)
	api.GET("/lookup/:label", api.lookup)
	api.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (api *API) rpc(c echo.Context) error {
	var body RPCRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("bad request"))
	}
	req, err := app.ParseRPCRequest(body.Method, body.Params)
	if err != nil {
		return api.fail(c, err)
	}
	return api.handle(c, req)
}

func (api *API) cron(c echo.Context) error {
	var body RPCRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("bad request"))
	}
	req, err := app.ParseCronRequest(body.Method)
	if err != nil {
		return api.fail(c, err)
	}
	return api.handle(c, req)
}

func (api *API) handle(c echo.Context, req app.Request) error {
	res, err := api.Backend.Handle(c.Request().Context(), req)
	if err != nil {
		return api.fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"result": res})
}

func (api *API) watchlist(c echo.Context) error {
	w, err := api.Backend.List(c.Request().Context())
	if err != nil {
		return api.fail(c, err)
	}
	return c.JSON(http.StatusOK, w)
}

func (api *API) lookup(c echo.Context) error {
	label, rec, err := api.Backend.Lookup(c.Request().Context(), c.Param("label"))
	if err != nil {
		return api.fail(c, err)
	}
	return c.JSON(http.StatusOK, lookupResponse{
		Label: label,
		ID:    ens.IdentifierOf(label).String(),
		Rec:   rec,
	})
}

func (api *API) fail(c echo.Context, err error) error {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		api.C.Logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.JSON(status, errorBody(err.Error()))
}

// StatusOf maps handler errors to HTTP status codes.
func StatusOf(err error) int {
	var (
		nf   *app.MethodNotFoundError
		rerr *ens.ResolutionError
		perr *domain.PersistenceError
	)
	switch {
	case errors.As(err, &nf):
		return http.StatusNotFound
	case errors.Is(err, app.ErrInvalidParams):
		return http.StatusBadRequest
	case errors.Is(err, ens.ErrNotRegistered):
		return http.StatusNotFound
	case errors.As(err, &rerr):
		return http.StatusBadGateway
	case errors.As(err, &perr):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
