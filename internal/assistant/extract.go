package assistant

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	apperrors "github.com/gmsas95/vitalink/internal/errors"
	"github.com/gmsas95/vitalink/internal/health"
	"github.com/gmsas95/vitalink/internal/metrics"
	"go.uber.org/zap"
)

const extractionSystemPrompt = `You are a medical assistant helping a patient read a prescription.
Extract every medication from the user's message or attached prescription photo.
Reply with JSON only, no prose, in this exact shape:
{"action":{"type":"CONFIRM_REMINDER","medications":[{"name":"...","dosage":"...","frequency":"...","times":["HH:MM"]}]}}
Times must be 24-hour HH:MM strings. If no medications are present, reply {"action":null}.`

// Reply is the structured assistant output the chat feature consumes.
type Reply struct {
	Text   string  `json:"text"`
	Action *Action `json:"action,omitempty"`
}

// Action is a machine-readable instruction embedded in a reply.
type Action struct {
	Type        string                       `json:"type"`
	Medications []health.ExtractedMedication `json:"medications,omitempty"`
}

// ActionConfirmReminder asks the client to confirm reminders for the
// extracted medications.
const ActionConfirmReminder = "CONFIRM_REMINDER"

// Extractor turns free text or prescription photos into structured
// medication lists.
type Extractor struct {
	client *Client
	logger *zap.Logger
}

// NewExtractor creates an extractor.
func NewExtractor(client *Client, logger *zap.Logger) *Extractor {
	return &Extractor{client: client, logger: logger}
}

// ExtractMedications runs the completion and parses the reply. Model output
// is untrusted: malformed JSON is an error, and every extracted entry is
// normalized before anything downstream sees it.
func (e *Extractor) ExtractMedications(ctx context.Context, prompt string, image []byte) ([]health.ExtractedMedication, error) {
	raw, err := e.client.Complete(ctx, extractionSystemPrompt, prompt, image)
	if err != nil {
		metrics.AssistantRequests.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.ErrAssistantUnavailable.Code, "completion failed")
	}

	reply, err := parseReply(raw)
	if err != nil {
		metrics.AssistantRequests.WithLabelValues("malformed").Inc()
		e.logger.Warn("Assistant returned malformed reply", zap.Error(err))
		return nil, err
	}

	metrics.AssistantRequests.WithLabelValues("ok").Inc()
	if reply.Action == nil || reply.Action.Type != ActionConfirmReminder {
		return nil, nil
	}
	return normalizeMedications(reply.Action.Medications), nil
}

var (
	jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	timeRe      = regexp.MustCompile(`^([01]?\d|2[0-3]):[0-5]\d$`)
)

// parseReply decodes the model's JSON, tolerating a fenced code block
// around it.
func parseReply(raw string) (*Reply, error) {
	text := strings.TrimSpace(raw)
	if m := jsonBlockRe.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	var reply Reply
	if err := json.Unmarshal([]byte(text), &reply); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrAssistantMalformed.Code, "reply is not valid JSON")
	}
	return &reply, nil
}

// normalizeMedications trims names, drops empty entries, discards times that
// are not HH:MM, and de-duplicates by case-folded name.
func normalizeMedications(meds []health.ExtractedMedication) []health.ExtractedMedication {
	seen := make(map[string]struct{})
	out := make([]health.ExtractedMedication, 0, len(meds))
	for _, m := range meds {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		var times []string
		for _, t := range m.Times {
			t = strings.TrimSpace(t)
			if timeRe.MatchString(t) {
				// Normalize "8:00" to "08:00".
				if len(t) == 4 {
					t = "0" + t
				}
				times = append(times, t)
			}
		}

		out = append(out, health.ExtractedMedication{
			Name:      name,
			Dosage:    strings.TrimSpace(m.Dosage),
			Frequency: strings.TrimSpace(m.Frequency),
			Times:     times,
		})
	}
	return out
}
