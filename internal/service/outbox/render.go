package outbox

import (
	"fmt"

	"github.com/abriesk/psychobotV1/internal/chat"
	"github.com/abriesk/psychobotV1/internal/domain"
)

var acceptLabels = map[string]string{
	"ru": "✅ Подтвердить",
	"am": "✅ Հաստատել",
	"en": "✅ Accept",
}

var counterLabels = map[string]string{
	"ru": "🔁 Предложить другое время",
	"am": "🔁 Առաջարկել այլ ժամ",
	"en": "🔁 Suggest another time",
}

func label(table map[string]string, lang string) string {
	if v, ok := table[lang]; ok {
		return v
	}
	return table["en"]
}

// render builds the outbound chat message for a notification. The switch is
// exhaustive over domain.NotificationType: proposals carry accept/counter
// controls referencing the request, status kinds are plain text, CUSTOM is
// the stored body verbatim.
func render(n domain.PendingNotification, lang string) (chat.Message, error) {
	msg := chat.Message{ChatID: n.UserID, Text: n.Message}

	switch n.Type {
	case domain.NotificationProposal:
		if n.RequestID == nil {
			return chat.Message{}, fmt.Errorf("proposal notification %d has no request", n.ID)
		}
		msg.Buttons = [][]chat.Button{
			{
				{Text: label(acceptLabels, lang), CallbackData: fmt.Sprintf("usr_yes_%d", *n.RequestID)},
			},
			{
				{Text: label(counterLabels, lang), CallbackData: fmt.Sprintf("usr_counter_%d", *n.RequestID)},
			},
		}
	case domain.NotificationConfirmation, domain.NotificationRejection, domain.NotificationReminder:
		// plain status text, no controls
	case domain.NotificationCustom:
		// stored body verbatim
	default:
		return chat.Message{}, fmt.Errorf("unknown notification type %q", n.Type)
	}

	return msg, nil
}
