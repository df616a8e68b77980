package domain

import (
	"errors"

	"github.com/tidwall/gjson"
)

// Paths a record field may be read from, in priority order. The nested paths
// are the shape browser clients store their chat history in.
//
//nolint:gochecknoglobals // Lookup tables
var (
	recordIDPaths             = []string{"id", "conversationOptions.parentMessageId"}
	recordPromptPaths         = []string{"prompt", "requestOptions.prompt"}
	recordResponsePaths       = []string{"text", "response"}
	recordParentPaths         = []string{"parentMessageId", "requestOptions.options.parentMessageId"}
	recordConversationIDPaths = []string{
		"conversationId",
		"conversationOptions.conversationId",
		"requestOptions.options.conversationId",
	}
)

// UnmarshalJSON accepts both the flat record shape and the nested client shape.
func (r *MessageRecord) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return errors.New("invalid message record json")
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return errors.New("message record must be an object")
	}

	*r = MessageRecord{
		ID:              firstString(doc, recordIDPaths),
		Prompt:          firstString(doc, recordPromptPaths),
		Response:        firstString(doc, recordResponsePaths),
		ParentMessageID: firstString(doc, recordParentPaths),
		ConversationID:  firstString(doc, recordConversationIDPaths),
	}

	return nil
}

func firstString(doc gjson.Result, paths []string) string {
	for _, path := range paths {
		value := doc.Get(path)
		if !value.Exists() || value.Type == gjson.Null {
			continue
		}
		if s := value.String(); s != "" {
			return s
		}
	}
	return ""
}
