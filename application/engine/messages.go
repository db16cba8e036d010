package engine

import "sentinel/domain/core/valueobjects"

// Alert texts shown to the user
const (
	GestureTriggerMessage = "Gesture trigger activated! Starting emergency protocol."
	ManualTriggerMessage  = "Manual panic activated! Starting emergency protocol."
	AudioUrgentMessage    = "Distress sounds detected! Possible emergency situation."
	AudioAdvisoryMessage  = "Loud noise detected - monitoring for emergency."

	DispatchedMessage     = "EMERGENCY ALERT SENT! Contacts notified, location shared."
	CancelledMessage      = "Emergency alert cancelled by user."
	ActivatedMessage      = "Safety protection activated successfully! All systems online."
	LocationSharedMessage = "Current location shared with emergency contacts."
	NotActiveMessage      = "Protection is not active. Activate safety protection first."
	ProfileUpdatedMessage = "Safety profile updated."

	deliveryFailedFormat = "Could not notify %s: %v"
)

// TriggerMessage derives the alert text for a classified trigger
func TriggerMessage(source valueobjects.TriggerSource, severity valueobjects.Severity) string {
	switch source {
	case valueobjects.SourceGesture:
		return GestureTriggerMessage
	case valueobjects.SourceManual:
		return ManualTriggerMessage
	case valueobjects.SourceAudio:
		if severity == valueobjects.SeverityUrgent {
			return AudioUrgentMessage
		}
		return AudioAdvisoryMessage
	default:
		return "Unknown trigger: " + source.String()
	}
}
