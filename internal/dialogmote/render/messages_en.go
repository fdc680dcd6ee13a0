package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "dialogmote.invited.title", defaultInvitedTitle)
	message.SetString(lang, "dialogmote.rescheduled.title", defaultRescheduledTitle)
	message.SetString(lang, "dialogmote.cancelled.title", defaultCancelledTitle)
	message.SetString(lang, "dialogmote.minutes.title", defaultMinutesTitle)
	message.SetString(lang, "dialogmote.response_prompt", defaultResponsePrompt)
}
