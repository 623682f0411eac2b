package app

import (
	"fmt"
	"time"
)

const dateLayout = "Mon Jan 02 2006"

// BuildNotificationText renders the expiry notice with the date in UTC.
func BuildNotificationText(label string, expirationDate int64) string {
	return NotificationTextIn(label, expirationDate, time.UTC)
}

func NotificationTextIn(label string, expirationDate int64, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	date := time.UnixMilli(expirationDate).In(loc).Format(dateLayout)
	return fmt.Sprintf("The ENS Domain %s.eth will expire on %s.", label, date)
}

func AddOrRemoveMessage(label string, isStored bool) PromptMessage {
	if isStored {
		return PromptMessage{
			Prompt:          "Remove Notification",
			Description:     fmt.Sprintf("ENS Domain %s.eth", label),
			TextAreaContent: fmt.Sprintf("Are you sure you want to remove the notification for %s.eth?", label),
		}
	}
	return PromptMessage{
		Prompt:          "Add Notification",
		Description:     fmt.Sprintf("ENS Domain %s.eth", label),
		TextAreaContent: fmt.Sprintf("Are you sure you want to add a notification for %s.eth?", label),
	}
}
