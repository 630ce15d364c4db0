package webserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/lachlan2k/malaria-dash/internal/accesscontrol"
	"github.com/lachlan2k/malaria-dash/internal/api"
	"github.com/lachlan2k/malaria-dash/internal/config"
	"github.com/lachlan2k/malaria-dash/internal/guard"
	"github.com/lachlan2k/malaria-dash/internal/session"
	"github.com/lachlan2k/malaria-dash/internal/tokenstore"
	"github.com/redis/go-redis/v9"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

type Webserver struct {
	echo   *echo.Echo
	logger *log.Logger

	conf     *config.Config
	origin   string
	backend  *api.Client
	registry *session.Registry
	clients  *clientCookieHandler
	redis    *redis.Client
}

func New() *Webserver {
	logger := log.New("dashboard")
	logger.SetLevel(log.INFO)

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger

	return &Webserver{
		echo:   e,
		logger: logger,
	}
}

func (w *Webserver) Logger() echo.Logger {
	return w.echo.Logger
}

// Handler exposes the configured router, mostly for tests.
func (w *Webserver) Handler() http.Handler {
	return w.echo
}

// Setup wires the backend client, session stores and routes.
func (w *Webserver) Setup(conf *config.Config) error {
	w.conf = conf
	w.origin = conf.Origin()

	w.backend = api.NewClient(
		api.Config{
			Address:       conf.Backend.Address,
			Timeout:       conf.BackendTimeout(),
			AllowInsecure: conf.Backend.AllowInsecure,
		},
		nil,
	)

	storageFor, err := w.makeStorageFactory()
	if err != nil {
		return err
	}

	w.registry = session.NewRegistry(
		func(clientID string) *session.Store {
			return session.New(storageFor(clientID), w.backend, w.logger)
		},
		conf.SessionIdleTimeout(),
		w.logger,
	)

	w.clients = &clientCookieHandler{
		Secret:       []byte(conf.Session.Cookie.Secret),
		CookieName:   conf.Session.Cookie.Name,
		CookieDomain: conf.Session.Cookie.Domain,
		CookieSecure: conf.Session.Cookie.Secure,
		Lifetime:     conf.SessionLifetime(),
	}

	markdown := goldmark.New(goldmark.WithExtensions(extension.GFM))
	renderer, err := newRenderer(markdown)
	if err != nil {
		return fmt.Errorf("couldn't load templates: %w", err)
	}
	w.echo.Renderer = renderer
	w.echo.HTTPErrorHandler = w.errorHandler

	w.echo.Use(middleware.Logger())
	w.echo.Use(middleware.Recover())

	w.registerRoutes()

	return nil
}

func (w *Webserver) makeStorageFactory() (func(clientID string) tokenstore.Storage, error) {
	switch w.conf.Session.Storage {
	case config.StorageRedis:
		w.redis = redis.NewClient(&redis.Options{
			Addr:     w.conf.Session.Redis.Address,
			Password: w.conf.Session.Redis.Password,
			DB:       w.conf.Session.Redis.DB,
		})
		prefix := w.conf.Session.Redis.KeyPrefix
		ttl := w.conf.SessionLifetime()
		return func(clientID string) tokenstore.Storage {
			return tokenstore.NewRedis(w.redis, prefix+":"+clientID, ttl)
		}, nil

	case config.StorageMemory:
		// Tokens live as long as the client's store does
		return func(string) tokenstore.Storage {
			return tokenstore.NewMemory()
		}, nil
	}

	return nil, fmt.Errorf("unsupported session storage %q", w.conf.Session.Storage)
}

func (w *Webserver) registerRoutes() {
	e := w.echo

	e.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, "pong")
	})

	app := e.Group("", w.sameOrigin, w.clients.middleware)

	app.GET("/", func(c echo.Context) error {
		return c.Redirect(http.StatusFound, "/login")
	})
	app.GET("/login", w.loginPageHandler)
	app.POST("/login", w.loginSubmitHandler)
	app.POST("/logout", w.logoutHandler)

	dashboard := app.Group("/dashboard", guard.RequireSession(w.storeFor, guard.Config{
		LoginPath: "/login",
		CheckAccess: func(c echo.Context, store *session.Store, identity session.Identity) error {
			return accesscontrol.CheckAccessWithLookup(
				c.Request().Context(),
				w.conf,
				identity,
				func(ctx context.Context) (api.UserType, error) {
					user, err := w.clientFor(store).CurrentUser(ctx)
					if err != nil {
						return 0, err
					}
					return user.UserType, nil
				},
			)
		},
	}))

	dashboard.GET("", w.dashboardHandler)
	dashboard.GET("/patients", w.patientsHandler)
	dashboard.POST("/patients", w.createPatientHandler)
	dashboard.GET("/patients/:id", w.patientHandler)
	dashboard.POST("/patients/:id/delete", w.deletePatientHandler)
	dashboard.POST("/patients/:id/screenings", w.uploadScreeningHandler)
	dashboard.GET("/screenings", w.screeningsHandler)
	dashboard.POST("/screenings/:id/delete", w.deleteScreeningHandler)
	dashboard.GET("/chatbot", w.chatbotHandler)
	dashboard.POST("/chatbot", w.sendChatHandler)
	dashboard.POST("/chatbot/:id/delete", w.deleteChatHandler)
}

func (w *Webserver) storeFor(c echo.Context) (*session.Store, error) {
	clientID := clientIDFromContext(c)
	if clientID == "" {
		return nil, errors.New("request has no client id")
	}
	return w.registry.Get(clientID), nil
}

// apiFor returns a backend client carrying the token of the guarded request's
// session.
func (w *Webserver) apiFor(c echo.Context) *api.Client {
	store := guard.StoreFromContext(c)
	if store == nil {
		return w.backend
	}
	return w.clientFor(store)
}

func (w *Webserver) clientFor(store *session.Store) *api.Client {
	return w.backend.WithTokenSource(tokenstore.TokenSource(store.Storage()))
}

func (w *Webserver) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "Something went wrong"
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		code = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	}

	if code >= http.StatusInternalServerError {
		w.logger.Errorf("Request to %s failed: %v", c.Request().URL.Path, err)
	}

	if renderErr := c.Render(code, "error", page{Title: http.StatusText(code), Error: message}); renderErr != nil {
		w.echo.DefaultHTTPErrorHandler(err, c)
	}
}

func (w *Webserver) Run(conf *config.Config) error {
	if err := w.Setup(conf); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if w.redis != nil {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		err := w.redis.Ping(pingCtx).Err()
		pingCancel()
		if err != nil {
			w.logger.Warnf("Redis at %s isn't reachable yet, sessions can't be restored until it is: %v", conf.Session.Redis.Address, err)
		}
		defer w.redis.Close()
	}

	go w.registry.Run(ctx)

	return w.echo.Start(fmt.Sprintf(":%d", conf.ListenPort))
}
