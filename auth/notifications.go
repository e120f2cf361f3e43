package auth

// Level is the severity of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

// Notification is a transient message shown once on the next rendered page
type Notification struct {
	Level   Level
	Message string
}

const maxNotifications = 10

func (s *Session) Notify(level Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyLocked(level, message)
}

func (s *Session) notifyLocked(level Level, message string) {
	s.notes = append(s.notes, Notification{Level: level, Message: message})
	if len(s.notes) > maxNotifications {
		s.notes = s.notes[len(s.notes)-maxNotifications:]
	}
}

// TakeNotifications drains the queue
func (s *Session) TakeNotifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	notes := s.notes
	s.notes = nil
	return notes
}
