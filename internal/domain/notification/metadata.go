package notification

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Metadata keys.
const (
	MetaSource          = "source"
	MetaCreatedBy       = "created_by"
	MetaSenderID        = "sender_id"
	MetaAdminAction     = "admin_action"
	MetaInitiatedBy     = "initiated_by"
	MetaSubtype         = "notification_subtype"
	MetaPriorityAlert   = "priority_alert"
	MetaFromAdmin       = "from_admin"
	MetaPerformedBy     = "performed_by"
	MetaUpdatedBy       = "updated_by"
	MetaCreatedByUserID = "created_by_user_id"
)

// metaString reads a metadata value as a string. Numeric ids are formatted
// without exponent; other kinds read as empty.
func (n *Notification) metaString(key string) string {
	if n.Metadata == nil {
		return ""
	}
	switch v := n.Metadata[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return ""
}

// metaBool accepts JSON booleans and the string "true".
func (n *Notification) metaBool(key string) bool {
	if n.Metadata == nil {
		return false
	}
	switch v := n.Metadata[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	}
	return false
}

func (n *Notification) Subtype() string {
	return n.metaString(MetaSubtype)
}

func (n *Notification) PriorityAlert() bool {
	return n.metaBool(MetaPriorityAlert)
}
