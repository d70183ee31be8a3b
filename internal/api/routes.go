package api

import (
	"strings"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(logger.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(s.config.Security.AllowOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	s.app.Use(s.metricsMiddleware())

	s.app.Get("/api/health", s.handleHealthCheck)
	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := s.app.Group("/api", s.authMiddleware(), s.rateLimitMiddleware())

	patients := api.Group("/patients/:patientId", s.requirePatientAccess())
	patients.Get("/record", s.handleGetRecord)
	patients.Get("/summary", s.handleGetSummary)
	patients.Post("/vitals", s.handleAddVital)
	patients.Post("/doses", s.handleLogDose)

	patients.Post("/medications", s.requireDoctor(), s.handleAddMedication)
	patients.Put("/medications/:medicationId", s.requireDoctor(), s.handleUpdateMedication)
	patients.Delete("/medications/:medicationId", s.requireDoctor(), s.handleDeleteMedication)
	patients.Post("/conditions", s.requireDoctor(), s.handleAddCondition)
	patients.Post("/allergies", s.requireDoctor(), s.handleAddAllergy)

	patients.Post("/reports", s.handleUploadReport)
	patients.Get("/reports/:reportId/url", s.handleReportURL)

	reminders := api.Group("/reminders")
	reminders.Get("/", s.handleListReminders)
	reminders.Post("/", s.handleCreateReminder)
	reminders.Post("/confirm", s.handleConfirmExtraction)
	reminders.Post("/:id/complete", s.handleCompleteReminder)
	reminders.Post("/:id/skip", s.handleSkipReminder)
	reminders.Post("/:id/reopen", s.handleReopenReminder)
	reminders.Patch("/:id/enabled", s.handleSetReminderEnabled)
	reminders.Delete("/:id", s.handleDeleteReminder)

	api.Post("/chat/extract", s.handleExtract)
}

// requirePatientAccess checks record ownership for every route nested under
// a patient ID.
func (s *Server) requirePatientAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !canAccessPatient(requestIdentity(c), c.Params("patientId")) {
			return errorResponse(c, apperrors.ErrForbidden)
		}
		return c.Next()
	}
}
