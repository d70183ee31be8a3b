package api

import (
	"strings"
	"sync"
	"time"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/identity"
	"github.com/gmsas95/vitalink/internal/metrics"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const identityKey = "identity"

// authMiddleware resolves the bearer token into an identity and stores it in
// the request locals. Requests without a valid identity stop here.
func (s *Server) authMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			return errorResponse(c, apperrors.ErrUnauthorized)
		}

		id := s.resolver.Resolve(strings.TrimPrefix(header, "Bearer "))
		if !id.Valid {
			return errorResponse(c, apperrors.ErrUnauthorized)
		}

		c.Locals(identityKey, id)
		return c.Next()
	}
}

func requestIdentity(c *fiber.Ctx) identity.Identity {
	id, _ := c.Locals(identityKey).(identity.Identity)
	return id
}

// canAccessPatient enforces record ownership: doctors see every patient,
// patients only the record linked to their own account.
func canAccessPatient(id identity.Identity, patientID string) bool {
	if id.Role == identity.RoleDoctor {
		return true
	}
	return id.PatientDataID != "" && id.PatientDataID == patientID
}

// requireDoctor guards clinician-only mutations of the medical record.
func (s *Server) requireDoctor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if requestIdentity(c).Role != identity.RoleDoctor {
			return errorResponse(c, apperrors.ErrForbidden)
		}
		return c.Next()
	}
}

// rateLimitMiddleware applies a token-bucket limit per authenticated subject
// (falling back to client IP for the rare unauthenticated route). Limiters
// are created lazily and never evicted; the key space is bounded by the user
// base.
func (s *Server) rateLimitMiddleware() fiber.Handler {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	rps := rate.Limit(s.config.Security.RateLimitRPS)
	burst := s.config.Security.RateLimitBurst

	return func(c *fiber.Ctx) error {
		key := c.IP()
		if id := requestIdentity(c); id.Valid {
			key = id.SubjectID
		}

		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(rps, burst)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
				"code":  "RATE_001",
			})
		}
		return c.Next()
	}
}

// metricsMiddleware records request counts and latency per route.
func (s *Server) metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := c.Route().Path
		metrics.RecordHTTPRequest(c.Method(), path, c.Response().StatusCode(), time.Since(start))
		return err
	}
}

// errorResponse maps application error codes onto HTTP statuses and renders
// the uniform error envelope.
func errorResponse(c *fiber.Ctx, err error) error {
	appErr, ok := err.(*apperrors.AppError)
	if !ok {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
			"code":  apperrors.ErrInternal.Code,
		})
	}

	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case apperrors.ErrUnauthorized.Code:
		status = fiber.StatusUnauthorized
	case apperrors.ErrForbidden.Code:
		status = fiber.StatusForbidden
	case apperrors.ErrPatientNotFound.Code,
		apperrors.ErrMedicationNotFound.Code,
		apperrors.ErrReminderNotFound.Code,
		apperrors.ErrNotFound.Code:
		status = fiber.StatusNotFound
	case apperrors.ErrDuplicateLogEntry.Code,
		apperrors.ErrInvalidTransition.Code,
		apperrors.ErrStaleWrite.Code:
		status = fiber.StatusConflict
	case apperrors.ErrAssistantUnavailable.Code:
		status = fiber.StatusBadGateway
	case apperrors.ErrAssistantMalformed.Code:
		status = fiber.StatusUnprocessableEntity
	default:
		// Validation failures share a 4xx mapping; AI_001/002 and REPORT_001
		// are provider failures and were matched above or stay 5xx.
		if strings.HasPrefix(appErr.Code, "VITAL_") ||
			strings.HasPrefix(appErr.Code, "MED_") ||
			strings.HasPrefix(appErr.Code, "REM_") ||
			strings.HasPrefix(appErr.Code, "COND_") ||
			strings.HasPrefix(appErr.Code, "ALRG_") ||
			strings.HasPrefix(appErr.Code, "AI_") ||
			appErr.Code == "REPORT_002" ||
			appErr.Code == apperrors.ErrBadRequest.Code {
			status = fiber.StatusBadRequest
		}
	}

	return c.Status(status).JSON(fiber.Map{
		"error": appErr.Message,
		"code":  appErr.Code,
	})
}

// logAndRespond logs server-side failures before rendering them.
func (s *Server) logAndRespond(c *fiber.Ctx, err error, msg string) error {
	if appErr, ok := err.(*apperrors.AppError); !ok || appErr.Code == apperrors.ErrInternal.Code {
		s.logger.Error(msg, zap.Error(err), zap.String("path", c.Path()))
	}
	return errorResponse(c, err)
}
