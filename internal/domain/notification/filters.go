package notification

import "strings"

// Operator is the authenticated user driving a session.
type Operator struct {
	ID    string
	Email string
}

// Filter reasons, also used as metric labels.
const (
	ReasonHiddenCategory      = "hidden_category"
	ReasonAdminDashboard      = "admin_dashboard"
	ReasonInitiatedByOperator = "initiated_by_operator"
	ReasonMessageFromAdmin    = "message_from_admin"
	ReasonMutatedByOperator   = "mutated_by_operator"
	ReasonDuplicate           = "duplicate"
)

const noSender = "none"

// isPaymentRecorded matches the always-hidden payment-recorded category,
// either by tag or by title.
func isPaymentRecorded(n *Notification) bool {
	if n.Type == TypePaymentRecorded {
		return true
	}
	if n.EntityType == "payment" && n.Subtype() == string(TypePaymentRecorded) {
		return true
	}
	return strings.Contains(strings.ToLower(n.Title), "payment recorded")
}

func createdByAdminDashboard(n *Notification) bool {
	return n.metaString(MetaCreatedBy) == "admin" ||
		n.metaBool(MetaAdminAction) ||
		n.metaString(MetaSource) == "admin_dashboard"
}

func initiatedByOperator(n *Notification, operatorID string) bool {
	return n.metaString(MetaSenderID) == operatorID ||
		n.metaString(MetaInitiatedBy) == operatorID
}

// messageFromAdmin treats a message without a usable sender, or one tagged
// from_admin, as admin originated. Membership is only checked once the admin
// set has loaded.
func messageFromAdmin(n *Notification, admins *AdminSet) bool {
	if n.Type != TypeMessage {
		return false
	}
	if n.metaBool(MetaFromAdmin) {
		return true
	}
	sender := n.metaString(MetaSenderID)
	if sender == "" || strings.EqualFold(sender, noSender) {
		return true
	}
	return admins.Contains(sender)
}

func mutatedByOperator(n *Notification, operatorID string) bool {
	for _, key := range []string{MetaPerformedBy, MetaUpdatedBy, MetaCreatedByUserID} {
		if n.metaString(key) == operatorID {
			return true
		}
	}
	return false
}

// selfOriginated reports whether n was caused by the operator's own action
// and names the rule that matched. Without an operator nothing matches.
func selfOriginated(n *Notification, op *Operator, admins *AdminSet) (bool, string) {
	if op == nil || op.ID == "" {
		return false, ""
	}
	switch {
	case createdByAdminDashboard(n):
		return true, ReasonAdminDashboard
	case initiatedByOperator(n, op.ID):
		return true, ReasonInitiatedByOperator
	case messageFromAdmin(n, admins):
		return true, ReasonMessageFromAdmin
	case mutatedByOperator(n, op.ID):
		return true, ReasonMutatedByOperator
	}
	return false, ""
}

// admit runs the hidden-category and self-origin checks. An empty reason
// means the record may enter the working set.
func admit(n *Notification, op *Operator, admins *AdminSet) string {
	if isPaymentRecorded(n) {
		return ReasonHiddenCategory
	}
	if self, reason := selfOriginated(n, op, admins); self {
		return reason
	}
	return ""
}
