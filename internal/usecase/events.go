package usecase

const (
	EventEvaluationRecorded = "evaluation_recorded"
	EventProfileDeleted     = "profile_deleted"
	EventSkillDeleted       = "skill_deleted"
	EventAccessLevelChanged = "access_level_changed"
)

// EventPublisher fans domain events out to live subscribers. Delivery is best
// effort and never fails the operation that produced the event.
type EventPublisher interface {
	Publish(eventType string, data any)
}

type noopPublisher struct{}

func (noopPublisher) Publish(string, any) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopPublisher{}
	}
	return p
}
