// Package httpapi exposes the listings services over HTTP with fiber.
package httpapi

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/dmitrijs2005/listings/internal/logging"
	"github.com/dmitrijs2005/listings/internal/server/auth"
	"github.com/dmitrijs2005/listings/internal/server/config"
	"github.com/dmitrijs2005/listings/internal/server/models"
	"github.com/dmitrijs2005/listings/internal/server/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*services.Token, error)
	Get(ctx context.Context, id string) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, id string, patch services.UserPatch) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type ListingService interface {
	Create(ctx context.Context, caller *auth.Identity, in services.ListingInput) (*models.Listing, error)
	Get(ctx context.Context, id string) (*models.Listing, error)
	Update(ctx context.Context, caller *auth.Identity, id string, patch services.ListingPatch) (*models.Listing, error)
	Delete(ctx context.Context, caller *auth.Identity, id string) error
	List(ctx context.Context, q models.ListingQuery) (*models.ListingPage, error)
	ListForOwner(ctx context.Context, caller *auth.Identity, q models.ListingQuery) (*models.ListingPage, error)
}

type ImageService interface {
	Attach(ctx context.Context, caller *auth.Identity, listingID string, up services.ImageUpload) (*models.ListingImage, error)
}

// Authorizer resolves and checks the caller of a request.
type Authorizer interface {
	Authorize(ctx context.Context, header string, policy auth.Policy) (*auth.Identity, error)
}

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the collaborators the HTTP layer calls into.
type Deps struct {
	Users    UserService
	Listings ListingService
	Images   ImageService
	Gate     Authorizer
	DB       Pinger
	Log      logging.Logger
}

type Server struct {
	app  *fiber.App
	deps Deps
	log  logging.Logger
	cfg  *config.Config
}

var (
	promOnce sync.Once
	prom     *fiberprometheus.FiberPrometheus
)

// metrics returns the process-wide Prometheus middleware. Collectors are
// registered globally, so it is built only once.
func metrics(serviceName string) *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		prom = fiberprometheus.New(serviceName)
	})
	return prom
}

// New builds the fiber app with middleware and routes.
func New(cfg *config.Config, deps Deps) *Server {
	s := &Server{deps: deps, log: deps.Log, cfg: cfg}

	s.app = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		BodyLimit:             int(cfg.MaxUploadBytes) + 1<<20,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) setupMiddleware() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(contextMiddleware())

	p := metrics(s.cfg.AppName)
	s.app.Use(p.Middleware)

	s.app.Use(helmet.New())
	s.app.Use(structuredLogger(s.log))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.cfg.CORSOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		MaxAge:       86400,
	}))
}

func (s *Server) setupRoutes() {
	s.app.Get("/health", s.health)
	metrics(s.cfg.AppName).RegisterAt(s.app, "/metrics")

	authGroup := s.app.Group("/auth")
	authGroup.Post("/register", s.register)
	authGroup.Post("/login", s.login)
	authGroup.Get("/me", s.require(auth.PolicyAuthenticated), s.me)

	listings := s.app.Group("/listings")
	listings.Get("/", s.listListings)
	listings.Get("/me", s.require(auth.PolicyAuthenticated), s.listMyListings)
	listings.Post("/", s.require(auth.PolicyAuthenticated), s.createListing)
	listings.Get("/:id", s.getListing)
	listings.Patch("/:id", s.require(auth.PolicyAuthenticated), s.updateListing)
	listings.Delete("/:id", s.require(auth.PolicyAuthenticated), s.deleteListing)
	listings.Post("/:id/images", s.require(auth.PolicyAuthenticated), s.uploadImage)

	users := s.app.Group("/users", s.require(auth.PolicyAdmin))
	users.Get("/", s.listUsers)
	users.Get("/:id", s.getUser)
	users.Patch("/:id", s.updateUser)
	users.Delete("/:id", s.deleteUser)
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := s.deps.DB.PingContext(ctx); err != nil {
		s.log.Warn(ctx, "health check failed", "error", err)
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
