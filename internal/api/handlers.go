package api

import (
	"io"
	"time"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (s *Server) handleHealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleGetRecord(c *fiber.Ctx) error {
	record, err := s.healthSvc.Record(c.Context(), c.Params("patientId"))
	if err != nil {
		return s.logAndRespond(c, err, "Failed to load patient record")
	}
	return c.JSON(record)
}

func (s *Server) handleGetSummary(c *fiber.Ctx) error {
	summary, err := s.healthSvc.Summarize(c.Context(), c.Params("patientId"))
	if err != nil {
		return s.logAndRespond(c, err, "Failed to summarize patient record")
	}
	return c.JSON(summary)
}

func (s *Server) handleAddVital(c *fiber.Ctx) error {
	var req health.VitalRecord
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("VITAL_003", "invalid request body", err))
	}
	if req.RecordedBy == "" {
		req.RecordedBy = requestIdentity(c).SubjectID
	}

	if err := s.healthSvc.AddVital(c.Context(), c.Params("patientId"), req); err != nil {
		return s.logAndRespond(c, err, "Failed to record vital")
	}
	return c.SendStatus(fiber.StatusCreated)
}

type logDoseRequest struct {
	MedicineName string `json:"medicineName"`
	Status       string `json:"status"`
	Timestamp    int64  `json:"timestamp,omitempty"` // unix milliseconds
}

func (s *Server) handleLogDose(c *fiber.Ctx) error {
	var req logDoseRequest
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("MED_005", "invalid request body", err))
	}

	var at time.Time
	if req.Timestamp > 0 {
		at = time.UnixMilli(req.Timestamp)
	}

	err := s.healthSvc.LogMedicationIntake(c.Context(), c.Params("patientId"),
		req.MedicineName, health.DoseStatus(req.Status), at)
	if err != nil {
		return s.logAndRespond(c, err, "Failed to log dose")
	}
	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) handleAddMedication(c *fiber.Ctx) error {
	var req health.Medication
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("MED_005", "invalid request body", err))
	}
	if req.PrescribedBy == "" {
		req.PrescribedBy = requestIdentity(c).SubjectID
	}

	med, err := s.healthSvc.AddMedication(c.Context(), c.Params("patientId"), req)
	if err != nil {
		return s.logAndRespond(c, err, "Failed to add medication")
	}
	return c.Status(fiber.StatusCreated).JSON(med)
}

func (s *Server) handleUpdateMedication(c *fiber.Ctx) error {
	var req health.Medication
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("MED_005", "invalid request body", err))
	}
	req.ID = c.Params("medicationId")

	if err := s.healthSvc.UpdateMedication(c.Context(), c.Params("patientId"), req); err != nil {
		return s.logAndRespond(c, err, "Failed to update medication")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleDeleteMedication(c *fiber.Ctx) error {
	err := s.healthSvc.DeleteMedication(c.Context(), c.Params("patientId"), c.Params("medicationId"))
	if err != nil {
		return s.logAndRespond(c, err, "Failed to delete medication")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleAddCondition(c *fiber.Ctx) error {
	var req health.MedicalCondition
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("COND_002", "invalid request body", err))
	}
	if req.AddedBy == "" {
		req.AddedBy = requestIdentity(c).SubjectID
	}

	cond, err := s.healthSvc.AddCondition(c.Context(), c.Params("patientId"), req)
	if err != nil {
		return s.logAndRespond(c, err, "Failed to add condition")
	}
	return c.Status(fiber.StatusCreated).JSON(cond)
}

func (s *Server) handleAddAllergy(c *fiber.Ctx) error {
	var req health.Allergy
	if err := c.BodyParser(&req); err != nil {
		return errorResponse(c, apperrors.New("ALRG_002", "invalid request body", err))
	}
	if req.AddedBy == "" {
		req.AddedBy = requestIdentity(c).SubjectID
	}

	allergy, err := s.healthSvc.AddAllergy(c.Context(), c.Params("patientId"), req)
	if err != nil {
		return s.logAndRespond(c, err, "Failed to add allergy")
	}
	return c.Status(fiber.StatusCreated).JSON(allergy)
}

func (s *Server) handleUploadReport(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, apperrors.New("REPORT_002", "report file is required", err))
	}

	f, err := fileHeader.Open()
	if err != nil {
		return s.logAndRespond(c, apperrors.Wrap(err, apperrors.ErrReportUpload.Code, "failed to read upload"), "Failed to read report upload")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return s.logAndRespond(c, apperrors.Wrap(err, apperrors.ErrReportUpload.Code, "failed to read upload"), "Failed to read report upload")
	}

	result, err := s.reports.Upload(c.Context(), data, fileHeader.Filename)
	if err != nil {
		return s.logAndRespond(c, err, "Report upload failed")
	}

	title := c.FormValue("title")
	if title == "" {
		title = fileHeader.Filename
	}
	report, err := s.healthSvc.AddReport(c.Context(), c.Params("patientId"), health.Report{
		Title:        title,
		AssetID:      result.AssetID,
		ResourceType: result.ResourceType,
		Version:      result.Version,
		Format:       result.Format,
		UploadedBy:   requestIdentity(c).SubjectID,
	})
	if err != nil {
		return s.logAndRespond(c, err, "Failed to attach report")
	}

	s.logger.Info("Report uploaded",
		zap.String("patient_id", c.Params("patientId")),
		zap.String("report_id", report.ID),
	)
	return c.Status(fiber.StatusCreated).JSON(report)
}

func (s *Server) handleReportURL(c *fiber.Ctx) error {
	record, err := s.healthSvc.Record(c.Context(), c.Params("patientId"))
	if err != nil {
		return s.logAndRespond(c, err, "Failed to load patient record")
	}

	reportID := c.Params("reportId")
	for _, r := range record.Reports {
		if r.ID == reportID {
			return c.JSON(fiber.Map{
				"url": s.reports.SignedURL(r.AssetID, r.ResourceType, r.Version, r.Format),
			})
		}
	}
	return errorResponse(c, apperrors.ErrNotFound)
}
