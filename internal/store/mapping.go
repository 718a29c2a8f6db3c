package store

import (
	"time"

	clover "github.com/ostafen/clover/v2"

	"smartlink/internal/domain"
)

// Decoding helpers. CloverDB round-trips documents through msgpack, so
// numbers may come back as int64, uint64, or float64 and slices come back as
// []interface{} regardless of what was stored.

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case uint64:
		return int64(n)
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}

func asStringSlice(v interface{}) []string {
	switch vs := v.(type) {
	case []string:
		return vs
	case []interface{}:
		out := make([]string, 0, len(vs))
		for _, e := range vs {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func asTime(v interface{}) time.Time {
	ns := asInt64(v)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns).UTC()
}

func messageToMap(m domain.Message) map[string]interface{} {
	return map[string]interface{}{
		"id":             m.ID,
		"conversationId": m.ConversationID,
		"senderId":       m.SenderID,
		"content":        m.Content,
		"contentType":    string(m.ContentType),
		"timestamp":      m.Timestamp.UnixNano(),
		"status":         string(m.Status),
		"encrypted":      m.Encrypted,
		"mediaUrl":       m.MediaURL,
	}
}

func mapToMessage(fields map[string]interface{}) domain.Message {
	return domain.Message{
		ID:             asString(fields["id"]),
		ConversationID: asString(fields["conversationId"]),
		SenderID:       asString(fields["senderId"]),
		Content:        asString(fields["content"]),
		ContentType:    domain.ContentType(asString(fields["contentType"])),
		Timestamp:      asTime(fields["timestamp"]),
		Status:         domain.MessageStatus(asString(fields["status"])),
		Encrypted:      asBool(fields["encrypted"]),
		MediaURL:       asString(fields["mediaUrl"]),
	}
}

func messageDoc(m domain.Message) *clover.Document {
	doc := clover.NewDocument()
	for k, v := range messageToMap(m) {
		doc.Set(k, v)
	}
	return doc
}

func docToMessage(doc *clover.Document) domain.Message {
	return domain.Message{
		ID:             asString(doc.Get("id")),
		ConversationID: asString(doc.Get("conversationId")),
		SenderID:       asString(doc.Get("senderId")),
		Content:        asString(doc.Get("content")),
		ContentType:    domain.ContentType(asString(doc.Get("contentType"))),
		Timestamp:      asTime(doc.Get("timestamp")),
		Status:         domain.MessageStatus(asString(doc.Get("status"))),
		Encrypted:      asBool(doc.Get("encrypted")),
		MediaURL:       asString(doc.Get("mediaUrl")),
	}
}

func conversationDoc(c domain.Conversation) *clover.Document {
	doc := clover.NewDocument()
	doc.Set("id", c.ID)
	doc.Set("name", c.Name)
	doc.Set("conversationType", string(c.Type))
	doc.Set("participants", c.Participants)
	doc.Set("encryptionEnabled", c.EncryptionEnabled)
	doc.Set("createdAt", c.CreatedAt.UnixNano())
	doc.Set("updatedAt", c.UpdatedAt.UnixNano())
	if c.LastMessage != nil {
		doc.Set("lastMessage", messageToMap(*c.LastMessage))
	}
	return doc
}

func docToConversation(doc *clover.Document) domain.Conversation {
	c := domain.Conversation{
		ID:                asString(doc.Get("id")),
		Name:              asString(doc.Get("name")),
		Type:              domain.ConversationType(asString(doc.Get("conversationType"))),
		Participants:      asStringSlice(doc.Get("participants")),
		EncryptionEnabled: asBool(doc.Get("encryptionEnabled")),
		CreatedAt:         asTime(doc.Get("createdAt")),
		UpdatedAt:         asTime(doc.Get("updatedAt")),
	}
	if last, ok := doc.Get("lastMessage").(map[string]interface{}); ok {
		m := mapToMessage(last)
		c.LastMessage = &m
	}
	return c
}
