package notification

import "go.uber.org/zap"

// SoundCue names an audio asset on the dashboard.
type SoundCue string

const (
	CueNewUser         SoundCue = "newUser"
	CueNewUserPriority SoundCue = "newUserPriority"
	CueProjectUpdate   SoundCue = "projectUpdate"
	CuePayment         SoundCue = "payment"
	CueEmergency       SoundCue = "emergency"
	CueMessage         SoundCue = "message"
	CueOrderApproved   SoundCue = "orderApproved"
	CueOrderDelivered  SoundCue = "orderDelivered"
	CueOrderCancelled  SoundCue = "orderCancelled"
	CueGeneral         SoundCue = "general"
	CuePriorityAlert   SoundCue = "priorityAlert"
)

// ToastSeverity is the visual style of a toast.
type ToastSeverity string

const (
	ToastError   ToastSeverity = "error"
	ToastSuccess ToastSeverity = "success"
	ToastInfo    ToastSeverity = "info"
	ToastNeutral ToastSeverity = "neutral"
)

type Toast struct {
	NotificationID string        `json:"notification_id,omitempty"`
	Title          string        `json:"title"`
	Message        string        `json:"message"`
	Severity       ToastSeverity `json:"severity"`
}

// Output receives the engine's side effects. Implementations must not block:
// they are called from the engine loop.
type Output interface {
	PlaySound(cue SoundCue) error
	ShowToast(t Toast)
	StateChanged(s State)
}

func isNewUser(n *Notification) bool {
	return n.Type == TypeUserCreated || (n.Type == TypeSystem && n.Subtype() == string(TypeUserCreated))
}

// CueFor picks the sound for a newly arrived notification.
func CueFor(n *Notification) SoundCue {
	if isNewUser(n) {
		if n.PriorityAlert() {
			return CueNewUserPriority
		}
		return CueNewUser
	}

	switch n.Type {
	case TypeProjectUpdate, TypeMilestoneComplete:
		return CueProjectUpdate
	case TypePaymentDue, TypePaymentRecorded:
		return CuePayment
	case TypeEmergency:
		return CueEmergency
	case TypeMessage:
		return CueMessage
	case TypeOrderApproved:
		return CueOrderApproved
	case TypeOrderDelivered:
		return CueOrderDelivered
	case TypeOrderCancelled:
		return CueOrderCancelled
	}
	return CueGeneral
}

func SeverityFor(p Priority) ToastSeverity {
	switch p {
	case PriorityHigh, PriorityUrgent:
		return ToastError
	case PriorityNormal:
		return ToastSuccess
	case PriorityLow:
		return ToastInfo
	}
	return ToastNeutral
}

type presenter struct {
	out Output
	log *zap.Logger
}

// play is fire-and-forget. Failures are logged and dropped.
func (p *presenter) play(cue SoundCue) {
	if p.out == nil {
		return
	}
	if err := p.out.PlaySound(cue); err != nil {
		p.log.Debug("sound playback failed", zap.String("cue", string(cue)), zap.Error(err))
	}
}

// announce cues and toasts a notification that just entered the working set.
func (p *presenter) announce(n *Notification, soundEnabled bool) {
	if p.out == nil {
		return
	}
	if soundEnabled {
		p.play(CueFor(n))
	}
	p.out.ShowToast(Toast{
		NotificationID: n.ID,
		Title:          n.Title,
		Message:        n.Message,
		Severity:       SeverityFor(n.Priority),
	})
}

func (p *presenter) state(s State) {
	if p.out != nil {
		p.out.StateChanged(s)
	}
}
