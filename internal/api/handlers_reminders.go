package api

import (
	"encoding/base64"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/gmsas95/vitalink/internal/identity"
	"github.com/gmsas95/vitalink/internal/reminder"
	"github.com/gofiber/fiber/v2"
)

type createReminderRequest struct {
	MedicineName string   `json:"medicineName"`
	Dosage       string   `json:"dosage,omitempty"`
	Frequency    string   `json:"frequency,omitempty"`
	Days         int      `json:"days,omitempty"`
	EveryDay     bool     `json:"everyDay"`
	Weekdays     []string `json:"weekdays,omitempty"`
	Times        []string `json:"times"`
}

func (s *Server) handleListReminders(c *fiber.Ctx) error {
	reminders, err := s.reminders.List(c.Context(), requestIdentity(c).SubjectID)
	if err != nil {
		return s.logAndRespond(c, err, "Failed to list reminders")
	}
	return c.JSON(fiber.Map{"reminders": reminders})
}

func (s *Server) handleCreateReminder(c *fiber.Ctx) error {
	var req createReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("REM_007", "invalid request body", err))
	}

	id := requestIdentity(c)
	r := &reminder.Reminder{
		UserID:       id.SubjectID,
		PatientID:    id.PatientDataID,
		MedicineName: req.MedicineName,
		Dosage:       req.Dosage,
		Frequency:    req.Frequency,
		Days:         req.Days,
		EveryDay:     req.EveryDay,
		Weekdays:     req.Weekdays,
		Times:        req.Times,
	}

	created, err := s.reminders.Create(c.Context(), r)
	if err != nil {
		return s.logAndRespond(c, err, "Failed to create reminder")
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

type confirmExtractionRequest struct {
	Medications []health.ExtractedMedication `json:"medications"`
}

// handleConfirmExtraction creates reminders for assistant-extracted
// medications after the user confirmed them.
func (s *Server) handleConfirmExtraction(c *fiber.Ctx) error {
	var req confirmExtractionRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("REM_007", "invalid request body", err))
	}
	if len(req.Medications) == 0 {
		return errorResponse(c, apperrors.New("REM_008", "no medications to confirm"))
	}

	id := requestIdentity(c)
	created, err := s.reminders.CreateFromExtraction(c.Context(), id.SubjectID, id.PatientDataID, req.Medications)
	if err != nil {
		return s.logAndRespond(c, err, "Failed to create reminders from extraction")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reminders": created})
}

// ownReminder loads a reminder and verifies the caller owns it.
func (s *Server) ownReminder(c *fiber.Ctx) (*reminder.Reminder, error) {
	r, err := s.reminders.Get(c.Context(), c.Params("id"))
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, apperrors.ErrReminderNotFound
	}
	id := requestIdentity(c)
	if r.UserID != id.SubjectID && id.Role != identity.RoleDoctor {
		return nil, apperrors.ErrForbidden
	}
	return r, nil
}

func (s *Server) handleCompleteReminder(c *fiber.Ctx) error {
	if _, err := s.ownReminder(c); err != nil {
		return errorResponse(c, err)
	}
	if err := s.reminders.Complete(c.Context(), c.Params("id")); err != nil {
		return s.logAndRespond(c, err, "Failed to complete reminder")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleSkipReminder(c *fiber.Ctx) error {
	if _, err := s.ownReminder(c); err != nil {
		return errorResponse(c, err)
	}
	if err := s.reminders.Skip(c.Context(), c.Params("id")); err != nil {
		return s.logAndRespond(c, err, "Failed to skip reminder")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleReopenReminder(c *fiber.Ctx) error {
	if _, err := s.ownReminder(c); err != nil {
		return errorResponse(c, err)
	}
	if err := s.reminders.Reopen(c.Context(), c.Params("id")); err != nil {
		return s.logAndRespond(c, err, "Failed to reopen reminder")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type setEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleSetReminderEnabled(c *fiber.Ctx) error {
	if _, err := s.ownReminder(c); err != nil {
		return errorResponse(c, err)
	}
	var req setEnabledRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("REM_007", "invalid request body", err))
	}
	if err := s.reminders.SetEnabled(c.Context(), c.Params("id"), req.Enabled); err != nil {
		return s.logAndRespond(c, err, "Failed to toggle reminder")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteReminder(c *fiber.Ctx) error {
	if _, err := s.ownReminder(c); err != nil {
		return errorResponse(c, err)
	}
	if err := s.reminders.Delete(c.Context(), c.Params("id")); err != nil {
		return s.logAndRespond(c, err, "Failed to delete reminder")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type extractRequest struct {
	Message     string `json:"message"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

// handleExtract runs the assistant over a chat message or prescription photo
// and returns the extracted medications for client-side confirmation.
// Nothing is persisted until the user confirms.
func (s *Server) handleExtract(c *fiber.Ctx) error {
	var req extractRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("AI_003", "invalid request body", err))
	}
	if req.Message == "" && req.ImageBase64 == "" {
		return errorResponse(c, apperrors.New("AI_004", "message or image is required"))
	}

	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return errorResponse(c, apperrors.New("AI_005", "image is not valid base64", err))
		}
		image = decoded
	}

	meds, err := s.extractor.ExtractMedications(c.Context(), req.Message, image)
	if err != nil {
		return s.logAndRespond(c, err, "Medication extraction failed")
	}
	return c.JSON(fiber.Map{"medications": meds})
}
