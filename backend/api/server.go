package api

import (
	"io"
	"os"
	"path/filepath"

	"github.com/andi/docconvert/backend/database"
	"github.com/andi/docconvert/backend/localstore"
	"github.com/andi/docconvert/backend/pool"
	"github.com/andi/docconvert/backend/publisher"
	"github.com/andi/docconvert/backend/registry"
	"github.com/andi/docconvert/backend/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/template/html/v2"
	"github.com/sirupsen/logrus"
)

// Server represents the HTTP API server
type Server struct {
	app       *fiber.App
	reg       *registry.Registry
	pool      *pool.Pool
	publisher *publisher.Publisher
	store     *localstore.Store
	gateway   *storage.Gateway
	history   *database.HistoryRepo
	keepLocal bool
	log       *logrus.Logger
}

// Options carries the server's collaborators
type Options struct {
	Registry  *registry.Registry
	Pool      *pool.Pool
	Publisher *publisher.Publisher
	Store     *localstore.Store
	Gateway   *storage.Gateway
	History   *database.HistoryRepo
	KeepLocal bool
	LogDir    string
	Logger    *logrus.Logger
}

// New creates a new API server
func New(opts Options) *Server {
	// Initialize HTML template engine
	engine := html.New("./frontend/templates", ".html")

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: errorHandler,
		BodyLimit:    100 * 1024 * 1024,
	})

	// Middleware
	app.Use(recover.New())

	// Configure logger to write only to file
	accessLogPath := filepath.Join(opts.LogDir, "access.log")
	accessLogFile, err := os.OpenFile(accessLogPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		opts.Logger.Warnf("Failed to open access log file: %v", err)
		app.Use(logger.New(logger.Config{
			Output: io.Discard,
		}))
	} else {
		app.Use(logger.New(logger.Config{
			Output: accessLogFile,
		}))
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	server := &Server{
		app:       app,
		reg:       opts.Registry,
		pool:      opts.Pool,
		publisher: opts.Publisher,
		store:     opts.Store,
		gateway:   opts.Gateway,
		history:   opts.History,
		keepLocal: opts.KeepLocal,
		log:       opts.Logger,
	}

	server.setupRoutes()
	return server
}

// setupRoutes sets up all API routes
func (s *Server) setupRoutes() {
	// Home page with server-side rendering
	s.app.Get("/", s.renderIndex)

	// Conversion lifecycle
	s.app.Post("/convert", s.convertFile)
	s.app.Get("/status/:id", s.getStatus)
	s.app.Get("/download/:id", s.downloadFile)
	s.app.Get("/share/:id", s.getShareLink)
	s.app.Get("/health", s.healthCheck)

	// Monitoring
	api := s.app.Group("/api")
	api.Get("/history", s.listHistory)
	api.Get("/pool/stats", s.getPoolStats)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	s.log.Infof("Starting HTTP server on %s", addr)
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app for tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// errorHandler handles fiber errors
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return c.Status(code).JSON(ErrorResponse{Error: err.Error()})
}

// ============== Page Rendering ==============

func (s *Server) renderIndex(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{
		"Title": "DocConvert - Office Document Conversion",
	})
}
