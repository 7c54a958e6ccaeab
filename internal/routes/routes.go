package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/arnold/productivityhub-api/internal/handlers"
	"github.com/arnold/productivityhub-api/internal/logging"
	"github.com/arnold/productivityhub-api/internal/metrics"
	"github.com/arnold/productivityhub-api/internal/middleware"
)

type Options struct {
	Handler     *handlers.Handler
	Auth        *middleware.Auth
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	UploadsDir  string
	CORSOrigins string
	BodyLimit   int // bytes; zero keeps Fiber's default
}

// NewApp builds the Fiber app with the shared middleware stack and every route.
func NewApp(o Options) *fiber.App {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	if o.CORSOrigins == "" {
		o.CORSOrigins = "*"
	}

	app := fiber.New(fiber.Config{
		AppName:               "productivityhub-api",
		ErrorHandler:          handlers.ErrorHandler(o.Log),
		BodyLimit:             o.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logging.RequestLogger(o.Log))
	app.Use(o.Metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: o.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	Setup(app, o)
	return app
}

func Setup(app *fiber.App, o Options) {
	h, auth := o.Handler, o.Auth

	app.Get("/health", h.Health)
	app.Get("/metrics", o.Metrics.Handler())
	if o.UploadsDir != "" {
		app.Static("/uploads", o.UploadsDir)
	}

	// Anonymous requests fall back to the guest owner; a bad token is still rejected.
	api := app.Group("/api", auth.Identify())

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", h.Register)
	authRoutes.Post("/login", h.Login)

	api.Get("/me", auth.Protected(), h.GetMe)
	api.Post("/device-token", auth.Protected(), h.RegisterDeviceToken)

	habits := api.Group("/habits")
	habits.Get("/", h.GetHabits)
	habits.Post("/", h.CreateHabit)
	habits.Get("/:id", h.GetHabit)
	habits.Put("/:id", h.UpdateHabit)
	habits.Put("/:id/toggle", h.ToggleHabit)
	habits.Delete("/:id", h.DeleteHabit)

	notes := api.Group("/notes")
	notes.Get("/", h.GetNotes)
	notes.Post("/", h.CreateNote)
	notes.Put("/:id", h.UpdateNote)
	notes.Delete("/:id", h.DeleteNote)

	// Live session feed, registered before /:id so "stream" is not taken as an id
	sessions := api.Group("/sessions")
	sessions.Get("/stream", h.QueryToken(), h.StreamSessions)
	sessions.Get("/", h.GetSessions)
	sessions.Post("/", h.CreateSession)
	sessions.Put("/:id", h.UpdateSession)
	sessions.Delete("/:id", h.DeleteSession)

	subjects := api.Group("/subjects", auth.Protected())
	subjects.Get("/", h.GetSubjects)
	subjects.Post("/", h.CreateSubject)
	subjects.Put("/:id", h.UpdateSubject)
	subjects.Delete("/:id", h.DeleteSubject)

	notifications := api.Group("/notifications")
	notifications.Get("/", h.GetNotifications)
	notifications.Put("/:id/read", h.MarkNotificationRead)
	notifications.Post("/read-all", h.MarkAllRead)

	ws := app.Group("/ws", auth.Identify(), h.QueryToken())
	ws.Get("/sessions", h.SessionSocketUpgrade(), h.SessionSocket())
}
