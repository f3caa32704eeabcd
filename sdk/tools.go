package sage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sagepoint-analytics/sage-go/pkg/core/live/protocol"
	"github.com/sagepoint-analytics/sage-go/pkg/core/providers/gemini"
	"github.com/sagepoint-analytics/sage-go/pkg/sheets"
)

// scheduleAppointmentName is the appointment-scheduling capability exposed
// to the model on both the text and voice paths.
const scheduleAppointmentName = "scheduleAppointment"

// appointmentSchema is the parameter schema for scheduleAppointment.
// Consultation time is optional; name, email and date are not.
var appointmentSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "name": {"type": "string", "description": "Nombre completo del cliente"},
    "email": {"type": "string", "description": "Correo electrónico del cliente"},
    "date": {"type": "string", "description": "Fecha de la cita, por ejemplo 2026-09-15"},
    "time": {"type": "string", "description": "Hora de la cita, por ejemplo 10:30"}
  },
  "required": ["name", "email", "date"]
}`)

// chatTools declares the tool surface for the turn-based path.
func chatTools() []gemini.Tool {
	return []gemini.Tool{{
		FunctionDeclarations: []gemini.FunctionDeclaration{{
			Name:        scheduleAppointmentName,
			Description: "Agenda una cita de consultoría gratuita de 30 minutos.",
			Parameters:  appointmentSchema,
		}},
	}}
}

// liveTools declares the same surface for the streaming path.
func liveTools() []protocol.Tool {
	return []protocol.Tool{{
		FunctionDeclarations: []protocol.FunctionDeclaration{{
			Name:        scheduleAppointmentName,
			Description: "Agenda una cita de consultoría gratuita de 30 minutos.",
			Parameters:  appointmentSchema,
		}},
	}}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// resolveFunctionCall executes one tool call and returns the structured
// result payload for the model. On a successful booking it appends a
// system notice summarizing the appointment.
func (c *Client) resolveFunctionCall(ctx context.Context, name string, args map[string]any) map[string]any {
	if name != scheduleAppointmentName {
		c.logger.Warn("model requested an unknown tool", "tool", name)
		return map[string]any{
			"success": false,
			"error":   fmt.Sprintf("unknown tool %q", name),
		}
	}

	date := stringArg(args, "date")
	timeOfDay := stringArg(args, "time")
	record := map[string]string{
		"type":  sheets.RecordTypeAppointment,
		"name":  stringArg(args, "name"),
		"email": stringArg(args, "email"),
		"date":  date,
		"time":  timeOfDay,
	}

	ok := c.sheets.Submit(ctx, record)
	if ok {
		c.systemNotice(ctx, fmt.Sprintf(c.ui().appointmentSaved, date, timeOfDay))
		return map[string]any{"success": true}
	}

	c.logger.Warn("appointment submission failed", "date", date)
	c.systemNotice(ctx, c.ui().appointmentFailed)
	return map[string]any{
		"success": false,
		"error":   "the appointment could not be saved",
	}
}
