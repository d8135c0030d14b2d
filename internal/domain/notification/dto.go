package notification

// NotificationListResponse for list endpoint
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int64          `json:"unread_count"`
	Total         int64          `json:"total"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
}

type UnreadCountResponse struct {
	UnreadCount int64 `json:"unread_count"`
}

type MarkAllReadResponse struct {
	Updated int `json:"updated"`
}

// CreateNotificationRequest is accepted from administrators only.
type CreateNotificationRequest struct {
	Type           Type           `json:"notification_type" validate:"required,oneof=system project_update payment_due payment_recorded milestone_complete message emergency user_created order_approved order_delivered order_cancelled"`
	Title          string         `json:"title" validate:"required,max=255"`
	Message        string         `json:"message" validate:"max=4000"`
	Priority       Priority       `json:"priority_level" validate:"omitempty,oneof=low normal high urgent"`
	EntityID       string         `json:"entity_id" validate:"max=64"`
	EntityType     string         `json:"entity_type" validate:"max=40"`
	ConversationID string         `json:"conversation_id" validate:"max=64"`
	RelatedID      string         `json:"related_id" validate:"max=64"`
	ProjectID      string         `json:"project_id" validate:"max=64"`
	Metadata       map[string]any `json:"metadata"`
}

func (r CreateNotificationRequest) toEntity() *Notification {
	return &Notification{
		Type:           r.Type,
		Title:          r.Title,
		Message:        r.Message,
		Priority:       r.Priority,
		EntityID:       r.EntityID,
		EntityType:     r.EntityType,
		ConversationID: r.ConversationID,
		RelatedID:      r.RelatedID,
		ProjectID:      r.ProjectID,
		Metadata:       r.Metadata,
	}
}
