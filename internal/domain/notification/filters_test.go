package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

var testOperator = &Operator{ID: "op-1", Email: "ops@buildhub.test"}

func loadedAdmins(ids ...string) *AdminSet {
	s := &AdminSet{}
	s.replace(ids)
	return s
}

func withMeta(n Notification, kv ...any) Notification {
	n.Metadata = datatypes.JSONMap{}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Metadata[kv[i].(string)] = kv[i+1]
	}
	return n
}

func TestIsPaymentRecorded(t *testing.T) {
	tests := []struct {
		name string
		n    Notification
		want bool
	}{
		{"by type", Notification{Type: TypePaymentRecorded, Title: "Invoice settled"}, true},
		{"by entity and subtype", withMeta(Notification{Type: TypeSystem, EntityType: "payment"}, MetaSubtype, "payment_recorded"), true},
		{"subtype without payment entity", withMeta(Notification{Type: TypeSystem, EntityType: "order"}, MetaSubtype, "payment_recorded"), false},
		{"by title", Notification{Type: TypePaymentDue, Title: "Payment Recorded: invoice 12"}, true},
		{"by title case-insensitive", Notification{Type: TypeSystem, Title: "payment recorded for order-3"}, true},
		{"payment due", Notification{Type: TypePaymentDue, Title: "Payment due tomorrow"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPaymentRecorded(&tt.n))
		})
	}
}

func TestCreatedByAdminDashboard(t *testing.T) {
	assert.True(t, createdByAdminDashboard(ptr(withMeta(Notification{}, MetaCreatedBy, "admin"))))
	assert.True(t, createdByAdminDashboard(ptr(withMeta(Notification{}, MetaAdminAction, true))))
	assert.True(t, createdByAdminDashboard(ptr(withMeta(Notification{}, MetaSource, "admin_dashboard"))))
	assert.False(t, createdByAdminDashboard(ptr(withMeta(Notification{}, MetaAdminAction, false))))
	assert.False(t, createdByAdminDashboard(ptr(withMeta(Notification{}, MetaSource, "mobile_app"))))
	assert.False(t, createdByAdminDashboard(&Notification{}))
}

func TestInitiatedByOperator(t *testing.T) {
	assert.True(t, initiatedByOperator(ptr(withMeta(Notification{}, MetaSenderID, "op-1")), "op-1"))
	assert.True(t, initiatedByOperator(ptr(withMeta(Notification{}, MetaInitiatedBy, "op-1")), "op-1"))
	assert.False(t, initiatedByOperator(ptr(withMeta(Notification{}, MetaSenderID, "op-2")), "op-1"))
	assert.False(t, initiatedByOperator(&Notification{}, "op-1"))
}

func TestMessageFromAdmin(t *testing.T) {
	admins := loadedAdmins("admin-7")
	msg := Notification{Type: TypeMessage}

	assert.True(t, messageFromAdmin(ptr(withMeta(msg, MetaSenderID, "admin-7")), admins))
	assert.True(t, messageFromAdmin(ptr(withMeta(msg)), admins), "missing sender")
	assert.True(t, messageFromAdmin(ptr(withMeta(msg, MetaSenderID, "")), admins), "empty sender")
	assert.True(t, messageFromAdmin(ptr(withMeta(msg, MetaSenderID, "none")), admins), "placeholder sender")
	assert.False(t, messageFromAdmin(ptr(withMeta(msg, MetaSenderID, "contractor-3")), admins))
	assert.True(t, messageFromAdmin(ptr(withMeta(msg, MetaSenderID, "contractor-3", MetaFromAdmin, true)), admins), "tagged")

	// only messages are considered
	assert.False(t, messageFromAdmin(ptr(withMeta(Notification{Type: TypeSystem}, MetaSenderID, "admin-7")), admins))
}

func TestMessageFromAdmin_SetNotLoaded(t *testing.T) {
	msg := Notification{Type: TypeMessage}

	assert.False(t, messageFromAdmin(ptr(withMeta(msg, MetaSenderID, "admin-7")), &AdminSet{}))
	assert.True(t, messageFromAdmin(ptr(withMeta(msg, MetaSenderID, "none")), &AdminSet{}))
}

func TestMutatedByOperator(t *testing.T) {
	for _, key := range []string{MetaPerformedBy, MetaUpdatedBy, MetaCreatedByUserID} {
		t.Run(key, func(t *testing.T) {
			assert.True(t, mutatedByOperator(ptr(withMeta(Notification{}, key, "op-1")), "op-1"))
			assert.False(t, mutatedByOperator(ptr(withMeta(Notification{}, key, "op-9")), "op-1"))
		})
	}
}

func TestSelfOriginated_EachRule(t *testing.T) {
	admins := loadedAdmins("admin-7")
	tests := []struct {
		name   string
		n      Notification
		reason string
	}{
		{"created_by admin", withMeta(Notification{Type: TypeSystem}, MetaCreatedBy, "admin"), ReasonAdminDashboard},
		{"admin_action", withMeta(Notification{Type: TypeSystem}, MetaAdminAction, true), ReasonAdminDashboard},
		{"admin dashboard source", withMeta(Notification{Type: TypeSystem}, MetaSource, "admin_dashboard"), ReasonAdminDashboard},
		{"sender is operator", withMeta(Notification{Type: TypeProjectUpdate}, MetaSenderID, "op-1"), ReasonInitiatedByOperator},
		{"initiated by operator", withMeta(Notification{Type: TypeProjectUpdate}, MetaInitiatedBy, "op-1"), ReasonInitiatedByOperator},
		{"message from admin", withMeta(Notification{Type: TypeMessage}, MetaSenderID, "admin-7"), ReasonMessageFromAdmin},
		{"message without sender", withMeta(Notification{Type: TypeMessage}), ReasonMessageFromAdmin},
		{"performed by operator", withMeta(Notification{Type: TypeOrderApproved}, MetaPerformedBy, "op-1"), ReasonMutatedByOperator},
		{"updated by operator", withMeta(Notification{Type: TypeOrderApproved}, MetaUpdatedBy, "op-1"), ReasonMutatedByOperator},
		{"created by operator user", withMeta(Notification{Type: TypeUserCreated}, MetaCreatedByUserID, "op-1"), ReasonMutatedByOperator},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			self, reason := selfOriginated(&tt.n, testOperator, admins)
			assert.True(t, self)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.reason, admit(&tt.n, testOperator, admins))
		})
	}
}

func TestSelfOriginated_NoOperator(t *testing.T) {
	n := withMeta(Notification{Type: TypeMessage}, MetaSource, "admin_dashboard")

	self, _ := selfOriginated(&n, nil, loadedAdmins())
	assert.False(t, self)
	assert.Empty(t, admit(&n, nil, loadedAdmins()))

	hidden := Notification{Type: TypePaymentRecorded}
	assert.Equal(t, ReasonHiddenCategory, admit(&hidden, nil, nil))
}

func TestSelfOriginated_Unrelated(t *testing.T) {
	n := withMeta(Notification{Type: TypeMessage}, MetaSenderID, "contractor-3", MetaPerformedBy, "op-2")

	self, _ := selfOriginated(&n, testOperator, loadedAdmins("admin-7"))
	assert.False(t, self)
}

func TestMetadataAccessors(t *testing.T) {
	n := withMeta(Notification{}, MetaSenderID, float64(42), MetaPriorityAlert, "true", MetaSubtype, " user_created ")

	assert.Equal(t, "42", n.metaString(MetaSenderID))
	assert.True(t, n.PriorityAlert())
	assert.Equal(t, "user_created", n.Subtype())

	var empty Notification
	assert.False(t, empty.PriorityAlert())
	assert.Empty(t, empty.Subtype())
}

func ptr(n Notification) *Notification { return &n }
