package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/arnold/productivityhub-api/internal/events"
	"github.com/arnold/productivityhub-api/internal/metrics"
	"github.com/arnold/productivityhub-api/internal/middleware"
	"github.com/arnold/productivityhub-api/internal/models"
	"github.com/arnold/productivityhub-api/internal/store"
)

// Deps are the collaborators shared by every handler.
type Deps struct {
	DB         *gorm.DB
	Habits     store.HabitStore
	Auth       *middleware.Auth
	Hub        *events.Hub
	Metrics    *metrics.Metrics
	Log        *zap.Logger
	UploadsDir string
	MaxUpload  int64 // bytes per attachment
	Now        func() time.Time
}

type Handler struct {
	db         *gorm.DB
	habits     store.HabitStore
	auth       *middleware.Auth
	hub        *events.Hub
	metrics    *metrics.Metrics
	log        *zap.Logger
	validate   *validator.Validate
	uploadsDir string
	maxUpload  int64
	now        func() time.Time
}

func New(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	if d.Hub == nil {
		d.Hub = events.NewHub(d.Log)
	}
	return &Handler{
		db:         d.DB,
		habits:     d.Habits,
		auth:       d.Auth,
		hub:        d.Hub,
		metrics:    d.Metrics,
		log:        d.Log,
		validate:   newValidator(),
		uploadsDir: d.UploadsDir,
		maxUpload:  d.MaxUpload,
		now:        d.Now,
	}
}

// newValidator reports field errors using their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeStrict decodes a single JSON object, rejecting unknown fields and trailing data.
func decodeStrict(c *fiber.Ctx, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON object")
	}
	return nil
}

// decodeErrorMessage describes a decodeStrict failure without exposing Go type names.
func decodeErrorMessage(err error) string {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		dateErr   *models.DateTimeError
	)
	switch {
	case errors.As(err, &dateErr):
		return dateErr.Error()
	case errors.As(err, &typeErr):
		if typeErr.Field != "" {
			return fmt.Sprintf("%s has the wrong type", typeErr.Field)
		}
		return "Request body must be a JSON object"
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return "Request body is not valid JSON"
	case errors.Is(err, io.EOF):
		return "Request body is required"
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		return "Unknown field " + strings.TrimPrefix(err.Error(), "json: unknown field ")
	}
	return "Invalid request body"
}

// validationMessage flattens validator errors into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s is %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func notFound(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": what + " not found"})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": msg})
}

// canAccess reports whether the request may act on a record owned by ownerID.
// Authenticated users only see their own records. Anonymous callers may use
// guest and free-form owner names but never a registered user's id.
func canAccess(c *fiber.Ctx, ownerID string) bool {
	if id := middleware.GetUserID(c); id != uuid.Nil {
		return ownerID == id.String()
	}
	_, err := uuid.Parse(ownerID)
	return err != nil
}

// requestOwner resolves the owner for list and create requests. ok is false
// when an anonymous caller asks for a registered user's records.
func requestOwner(c *fiber.Ctx, requested string) (string, bool) {
	owner := middleware.OwnerID(c, requested)
	return owner, canAccess(c, owner)
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
}

// ErrorHandler renders errors that escape the handlers in the API's JSON shape.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "Internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(fiber.Map{"error": msg})
	}
}

// Health reports whether the API and its database are reachable.
func (h *Handler) Health(c *fiber.Ctx) error {
	status := fiber.Map{"status": "ok", "subscribers": h.hub.Count()}
	if h.db != nil {
		sqlDB, err := h.db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			h.log.Warn("health check database ping failed", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "error": "database unavailable"})
		}
	}
	return c.JSON(status)
}
