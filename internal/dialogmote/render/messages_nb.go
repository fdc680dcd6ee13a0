package render

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.MustParse("nb")

	message.SetString(lang, "dialogmote.invited.title", "Innkalling til dialogmøte")
	message.SetString(lang, "dialogmote.rescheduled.title", "Nytt tidspunkt for dialogmøte")
	message.SetString(lang, "dialogmote.cancelled.title", "Dialogmøtet er avlyst")
	message.SetString(lang, "dialogmote.minutes.title", "Referat fra dialogmøte")
	message.SetString(lang, "dialogmote.response_prompt", "Gi oss beskjed om du kan delta.")
}
