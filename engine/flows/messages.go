package flows

import (
	"fmt"
	"strings"
	"time"

	"github.com/zapagenda/engine/engine/state"
)

// Reply templates. Fixed pt-BR strings; the caller owns delivery.

func msgMissingFields(missing []string) string {
	return fmt.Sprintf("Para agendar, preciso de %s.", strings.Join(missing, " e "))
}

func msgConfirm(service, person, date, clock string) string {
	return fmt.Sprintf("Posso agendar %s com %s no dia %s às %s? (sim/não)",
		service, person, formatDateBR(date), clock)
}

func msgBooked() string {
	return "Perfeito! Seu horário foi agendado com sucesso. Até lá!"
}

func msgSlotConflict() string {
	return "Esse horário não está mais disponível. Pode me passar outra data e hora?"
}

func msgDenied() string {
	return "Sem problemas, deixei de lado esse agendamento. Quando quiser, é só chamar."
}

func msgProfessionalUnknown(hint string) string {
	return fmt.Sprintf("Não encontrei o profissional %q por aqui. Pode me dizer o nome de novo?", hint)
}

func msgAskCancelDay() string {
	return "Claro! Me diga o dia do agendamento que você quer cancelar."
}

func msgAskReschedDay() string {
	return "Claro! Me diga o dia do agendamento que você quer remarcar."
}

func msgNothingFound() string {
	return "Não encontrei nenhum agendamento para esse dia."
}

func msgCanceled() string {
	return "Seu agendamento foi cancelado com sucesso."
}

func msgRescheduled() string {
	return "Seu agendamento foi remarcado com sucesso."
}

func msgAskNewSlot() string {
	return "Encontrei seu agendamento. Para qual nova data e hora você quer remarcar?"
}

func msgNewSlotMissing(missing []string) string {
	return fmt.Sprintf("Só falta %s para eu remarcar.", strings.Join(missing, " e "))
}

func msgCandidates(candidates []state.Candidate, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("Encontrei mais de um agendamento nesse dia. Qual deles?")
	for i, c := range candidates {
		start, err := time.Parse(time.RFC3339, c.StartISO)
		when := c.StartISO
		if err == nil {
			local := start.In(loc)
			when = fmt.Sprintf("%s às %s", local.Format("02/01/2006"), local.Format("15:04"))
		}
		fmt.Fprintf(&b, "\n%d) %s em %s", i+1, c.Summary, when)
	}
	return b.String()
}

func msgDisambiguationExhausted() string {
	return "Ainda não consegui identificar qual agendamento você quer. Vamos recomeçar: me diga a data e o horário exatos."
}

func msgGatewayUnavailable() string {
	return "Estou com dificuldade para acessar a agenda agora. Pode tentar novamente em instantes?"
}

// formatDateBR renders YYYY-MM-DD as DD/MM/YYYY.
func formatDateBR(date string) string {
	parsed, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return parsed.Format("02/01/2006")
}
