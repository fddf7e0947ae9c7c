// Package notification flattens Meta webhook notification payloads into
// mention events. The platform batches changes as entry[].changes[], and
// anything that is not a well-formed "mentions" change is not of interest.
package notification

import (
	"encoding/json"

	"aicheckr.app/mentions/internal/model"
)

// FieldMentions is the change discriminator for mention notifications.
const FieldMentions = "mentions"

type change struct {
	Field string `json:"field"`
	Value struct {
		MediaID   string `json:"media_id"`
		CommentID string `json:"comment_id"`
	} `json:"value"`
}

// Mentions extracts the mention events from a raw notification payload.
//
// Each entry and each change is decoded independently, so one malformed node
// never poisons its siblings. Missing entry/changes arrays, null values,
// non-mention fields, and absent ids all simply contribute nothing.
// Structural absence is data, not failure: this never returns an error.
func Mentions(payload []byte) []model.MentionEvent {
	var doc struct {
		Entry []json.RawMessage `json:"entry"`
	}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil
	}

	var events []model.MentionEvent
	for _, rawEntry := range doc.Entry {
		var entry struct {
			Changes []json.RawMessage `json:"changes"`
		}
		if err := json.Unmarshal(rawEntry, &entry); err != nil {
			continue
		}

		for _, rawChange := range entry.Changes {
			var ch change
			if err := json.Unmarshal(rawChange, &ch); err != nil {
				continue
			}
			if ch.Field != FieldMentions {
				continue
			}
			if ch.Value.MediaID == "" || ch.Value.CommentID == "" {
				continue
			}
			events = append(events, model.MentionEvent{
				MediaID:   ch.Value.MediaID,
				CommentID: ch.Value.CommentID,
			})
		}
	}

	return events
}
