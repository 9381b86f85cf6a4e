package service

import (
	"fmt"
	"strings"

	"villaalcielo/internal/models"
)

// paymentInstructions renders the transfer text the guest receives. The
// deposit is an integer percentage of the total, rounded down to whole pesos.
func (s *ReservationService) paymentInstructions(r *models.Reservation) string {
	deposit := r.TotalPrice * int64(s.policy.DepositPercent) / 100

	var b strings.Builder
	fmt.Fprintf(&b, "Para confirmar tu reserva %s, consigna el %d%% del total (%s COP) dentro de las proximas %d horas.\n",
		r.ConfirmationCode, s.policy.DepositPercent, formatCOP(deposit), int(s.policy.FreezeDuration.Hours()))
	fmt.Fprintf(&b, "Total de la estadia: %s COP.\n", formatCOP(r.TotalPrice))
	fmt.Fprintf(&b, "Cuenta de ahorros %s No. %s a nombre de %s.\n",
		s.policy.BankName, s.policy.AccountNumber, s.policy.AccountHolder)
	fmt.Fprintf(&b, "Envia el comprobante por WhatsApp al %s indicando el codigo %s.",
		s.policy.WhatsAppNumber, r.ConfirmationCode)
	return b.String()
}

// formatCOP writes an amount with dot thousands separators, e.g. 390.000.
func formatCOP(amount int64) string {
	digits := fmt.Sprintf("%d", amount)
	neg := strings.HasPrefix(digits, "-")
	if neg {
		digits = digits[1:]
	}

	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(digits[i : i+3])
	}

	out := b.String()
	if neg {
		out = "-" + out
	}
	return out
}
