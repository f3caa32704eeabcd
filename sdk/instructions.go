package sage

import (
	"strings"

	"github.com/sagepoint-analytics/sage-go/pkg/sheets"
)

// businessFacts is the fixed business description the assistant speaks from.
// It is part of the instruction context on both the text and voice paths.
const businessFacts = `Sagepoint es una consultora de analítica de datos para pymes.

Servicios:
- Dashboards e informes automatizados (ventas, marketing, operaciones).
- Integración y limpieza de fuentes de datos.
- Modelos de pronóstico de demanda y segmentación de clientes.
- Acompañamiento mensual con analista dedicado.

Planes:
- Plan Básico: $300/mes. Un dashboard, actualización semanal.
- Plan Profesional: $600/mes. Hasta cuatro dashboards, actualización diaria, soporte prioritario.
- Plan Avanzado: precio a medida. Modelos predictivos y analista dedicado.

Las citas de consultoría son gratuitas, duran 30 minutos y se agendan de
lunes a viernes entre 09:00 y 18:00.`

// systemInstruction builds the full instruction context: persona rules,
// business facts, the active knowledge base and the language directive.
// It is rebuilt whenever the language or knowledge base generation changes.
func systemInstruction(language string, kb []sheets.Entry) string {
	var sb strings.Builder

	sb.WriteString("Eres Sage, la asistente virtual de Sagepoint. ")
	sb.WriteString("Responde de forma breve, cercana y profesional. ")
	sb.WriteString("Solo hablas de Sagepoint, sus servicios, planes y citas. ")
	sb.WriteString("Si el usuario quiere agendar una cita, pide nombre, correo y fecha, ")
	sb.WriteString("y usa la función scheduleAppointment. No inventes datos de contacto.\n\n")

	sb.WriteString("INFORMACIÓN DEL NEGOCIO:\n")
	sb.WriteString(businessFacts)

	if len(kb) > 0 {
		sb.WriteString("\n\nPREGUNTAS FRECUENTES:\n")
		for _, entry := range kb {
			sb.WriteString("P: ")
			sb.WriteString(entry.Question)
			sb.WriteString("\nR: ")
			sb.WriteString(entry.Answer)
			sb.WriteString("\n")
		}
	}

	if language == "en" {
		sb.WriteString("\nIMPORTANT: Reply in English, whatever language the user writes in.")
	} else {
		sb.WriteString("\nIMPORTANTE: Responde siempre en español.")
	}

	return sb.String()
}

// uiStrings are the localized notice texts appended to the conversation as
// system messages.
type uiStrings struct {
	appointmentSaved  string // fmt: date, time
	appointmentFailed string
	turnFailed        string
	toolLoopExceeded  string
	micDenied         string
	micNotFound       string
	micInsecure       string
	micGeneric        string
	voiceFailed       string
}

func uiText(language string) uiStrings {
	if language == "en" {
		return uiStrings{
			appointmentSaved:  "✅ Appointment booked for %s %s. We recorded it in our calendar.",
			appointmentFailed: "We could not save the appointment. Please try again in a moment.",
			turnFailed:        "Something went wrong processing your message. Please try again.",
			toolLoopExceeded:  "The assistant got stuck processing your request. Please try again.",
			micDenied:         "Microphone access was denied. Allow it in your browser settings to use voice.",
			micNotFound:       "No microphone was found. Connect one and try again.",
			micInsecure:       "Voice requires a secure (HTTPS) connection.",
			micGeneric:        "The microphone could not be started.",
			voiceFailed:       "The voice session ended unexpectedly. You can start it again.",
		}
	}
	return uiStrings{
		appointmentSaved:  "✅ Cita agendada para el %s %s. Quedó registrada en nuestra agenda.",
		appointmentFailed: "No pudimos guardar la cita. Inténtalo de nuevo en un momento.",
		turnFailed:        "Ocurrió un error procesando tu mensaje. Inténtalo de nuevo.",
		toolLoopExceeded:  "La asistente se quedó atascada procesando tu solicitud. Inténtalo de nuevo.",
		micDenied:         "El acceso al micrófono fue denegado. Actívalo en tu navegador para usar la voz.",
		micNotFound:       "No se encontró ningún micrófono. Conecta uno e inténtalo de nuevo.",
		micInsecure:       "La voz requiere una conexión segura (HTTPS).",
		micGeneric:        "No se pudo iniciar el micrófono.",
		voiceFailed:       "La sesión de voz terminó inesperadamente. Puedes iniciarla de nuevo.",
	}
}
