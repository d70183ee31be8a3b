package errors

import "fmt"

type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code, message string, cause ...error) *AppError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   c,
	}
}

var (
	ErrConfigNotFound = &AppError{Code: "CONFIG_001", Message: "configuration not found"}
	ErrConfigInvalid  = &AppError{Code: "CONFIG_002", Message: "invalid configuration"}

	ErrPatientNotFound = &AppError{Code: "PATIENT_001", Message: "patient record not found"}
	ErrStaleWrite      = &AppError{Code: "PATIENT_002", Message: "patient record was modified concurrently"}

	ErrMedicationNotFound = &AppError{Code: "MED_001", Message: "medication not found"}
	ErrDuplicateLogEntry  = &AppError{Code: "MED_002", Message: "adherence already logged for this date"}
	ErrInvalidVital       = &AppError{Code: "VITAL_001", Message: "vital reading is not a valid number"}

	ErrReminderNotFound  = &AppError{Code: "REM_001", Message: "reminder not found"}
	ErrInvalidTransition = &AppError{Code: "REM_002", Message: "reminder status transition not allowed"}

	ErrAssistantUnavailable = &AppError{Code: "AI_001", Message: "assistant provider unavailable"}
	ErrAssistantMalformed   = &AppError{Code: "AI_002", Message: "assistant returned malformed reply"}

	ErrReportUpload = &AppError{Code: "REPORT_001", Message: "report upload failed"}

	ErrUnauthorized = &AppError{Code: "AUTH_001", Message: "unauthorized"}
	ErrForbidden    = &AppError{Code: "AUTH_002", Message: "forbidden"}

	ErrNotFound   = &AppError{Code: "GEN_001", Message: "resource not found"}
	ErrBadRequest = &AppError{Code: "GEN_002", Message: "bad request"}
	ErrInternal   = &AppError{Code: "GEN_003", Message: "internal error"}
)

func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}
