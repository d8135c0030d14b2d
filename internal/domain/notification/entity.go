package notification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Type is the notification category.
type Type string

const (
	TypeSystem            Type = "system"
	TypeProjectUpdate     Type = "project_update"
	TypePaymentDue        Type = "payment_due"
	TypePaymentRecorded   Type = "payment_recorded"
	TypeMilestoneComplete Type = "milestone_complete"
	TypeMessage           Type = "message"
	TypeEmergency         Type = "emergency"
	TypeUserCreated       Type = "user_created"
	TypeOrderApproved     Type = "order_approved"
	TypeOrderDelivered    Type = "order_delivered"
	TypeOrderCancelled    Type = "order_cancelled"
)

// Priority is the notification severity.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Notification is one row of the notifications table. Metadata carries the
// provenance flags the engine filters on.
type Notification struct {
	ID             string            `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type           Type              `gorm:"column:notification_type;type:varchar(40);index;not null" json:"notification_type"`
	Title          string            `gorm:"type:varchar(255);not null" json:"title"`
	Message        string            `gorm:"type:text" json:"message"`
	Priority       Priority          `gorm:"column:priority_level;type:varchar(10);not null;default:normal" json:"priority_level"`
	IsRead         bool              `gorm:"index;not null;default:false" json:"is_read"`
	ReadAt         *time.Time        `json:"read_at,omitempty"`
	CreatedAt      time.Time         `gorm:"index" json:"created_at"`
	EntityID       string            `gorm:"type:varchar(64)" json:"entity_id,omitempty"`
	EntityType     string            `gorm:"type:varchar(40)" json:"entity_type,omitempty"`
	ConversationID string            `gorm:"type:varchar(64)" json:"conversation_id,omitempty"`
	RelatedID      string            `gorm:"type:varchar(64)" json:"related_id,omitempty"`
	ProjectID      string            `gorm:"type:varchar(64)" json:"project_id,omitempty"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
}

// TableName specifies table name for GORM
func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Priority == "" {
		n.Priority = PriorityNormal
	}
	if !n.CreatedAt.IsZero() {
		n.CreatedAt = n.CreatedAt.UTC()
	}
	return nil
}

// MarkRead sets the read flag and timestamp together.
func (n *Notification) MarkRead(at time.Time) {
	if n.IsRead && n.ReadAt != nil {
		return
	}
	n.IsRead = true
	n.ReadAt = &at
}
