package domain

import "time"

// Document templates per lifecycle operation. The caseworker-supplied
// free text is appended as the final paragraph; structure and headings
// are fixed per operation and participant kind.

const scheduleTimeLayout = "Monday 2 January 2006 at 15:04"

func scheduleBlocks(scheduledAt time.Time, place, videoLink string) []DocumentBlock {
	texts := []string{"Time: " + scheduledAt.Format(scheduleTimeLayout)}
	if place != "" {
		texts = append(texts, "Place: "+place)
	}
	blocks := []DocumentBlock{{Kind: BlockParagraph, Texts: texts}}
	if videoLink != "" {
		blocks = append(blocks, DocumentBlock{Kind: BlockLink, Title: "Video meeting link", Texts: []string{videoLink}})
	}
	return blocks
}

func appendFreeText(blocks []DocumentBlock, freeText string) []DocumentBlock {
	if freeText == "" {
		return blocks
	}
	return append(blocks, DocumentBlock{Kind: BlockParagraph, Texts: []string{freeText}})
}

func conveneDocument(kind ParticipantKind, scheduledAt time.Time, place, videoLink, freeText string) []DocumentBlock {
	heading := "Invitation to dialogue meeting"
	if kind == KindEmployer {
		heading = "Invitation to dialogue meeting for your employee"
	}
	blocks := []DocumentBlock{{Kind: BlockHeading, Title: heading}}
	blocks = append(blocks, scheduleBlocks(scheduledAt, place, videoLink)...)
	return appendFreeText(blocks, freeText)
}

func rescheduleDocument(scheduledAt time.Time, place, videoLink, freeText string) []DocumentBlock {
	blocks := []DocumentBlock{{Kind: BlockHeading, Title: "New time or place for dialogue meeting"}}
	blocks = append(blocks, scheduleBlocks(scheduledAt, place, videoLink)...)
	return appendFreeText(blocks, freeText)
}

func cancelDocument(scheduledAt time.Time, freeText string) []DocumentBlock {
	blocks := []DocumentBlock{
		{Kind: BlockHeading, Title: "Dialogue meeting cancelled"},
		{Kind: BlockParagraph, Texts: []string{
			"The dialogue meeting scheduled for " + scheduledAt.Format(scheduleTimeLayout) + " is cancelled.",
		}},
	}
	return appendFreeText(blocks, freeText)
}

func minutesNotificationDocument(minutes Minutes) []DocumentBlock {
	heading := "Minutes from dialogue meeting"
	if minutes.AmendmentReason != "" {
		heading = "Amended minutes from dialogue meeting"
	}
	blocks := []DocumentBlock{{Kind: BlockHeading, Title: heading}}
	if minutes.AmendmentReason != "" {
		blocks = append(blocks, DocumentBlock{Kind: BlockParagraph, Texts: []string{"Reason for amendment: " + minutes.AmendmentReason}})
	}
	blocks = append(blocks, minutes.Document...)
	if minutes.PractitionerTask != "" {
		blocks = append(blocks, DocumentBlock{Kind: BlockParagraph, Texts: []string{minutes.PractitionerTask}})
	}
	return blocks
}
