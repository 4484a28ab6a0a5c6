package model

// Label tables for calendar rows. Unknown codes render as the raw code.
var (
	AppointmentTypeLabels = map[string]string{
		"consulta":     "Consulta",
		"retorno":      "Retorno",
		"exame":        "Exame",
		"procedimento": "Procedimento",
		"urgencia":     "Urgência",
	}

	ConsultationModeLabels = map[string]string{
		"presencial":   "Presencial",
		"telemedicina": "Telemedicina",
		"domiciliar":   "Domiciliar",
	}

	AppointmentStatusLabels = map[AppointmentStatus]string{
		AppointmentStatusScheduled:  "Agendado",
		AppointmentStatusConfirmed:  "Confirmado",
		AppointmentStatusInProgress: "Em andamento",
		AppointmentStatusCompleted:  "Concluído",
		AppointmentStatusCancelled:  "Cancelado",
		AppointmentStatusNoShow:     "Faltou",
	}
)

func labelOr(table map[string]string, code string) string {
	if label, ok := table[code]; ok {
		return label
	}
	return code
}

func AppointmentTypeLabel(code string) string {
	return labelOr(AppointmentTypeLabels, code)
}

func ConsultationModeLabel(code string) string {
	return labelOr(ConsultationModeLabels, code)
}

func AppointmentStatusLabel(status AppointmentStatus) string {
	if label, ok := AppointmentStatusLabels[status]; ok {
		return label
	}
	return string(status)
}
