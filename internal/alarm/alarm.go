package alarm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soltixdb/rediswatch/internal/logging"
	"github.com/soltixdb/rediswatch/internal/queue"
	"github.com/soltixdb/rediswatch/internal/utils"
)

// Alarm is one operator notification
type Alarm struct {
	ID       string                 `json:"id"`
	Message  string                 `json:"message"`
	Context  map[string]interface{} `json:"context,omitempty"`
	RaisedAt time.Time              `json:"raised_at"`
}

// Alarmer raises operator-facing alarms
type Alarmer interface {
	RaiseAlarm(ctx context.Context, message string, details map[string]interface{}) error
}

// QueueAlarmer publishes alarms as JSON on <prefix>.alarm
type QueueAlarmer struct {
	publisher queue.Publisher
	subject   string
	logger    *logging.Logger
	now       func() time.Time
}

// NewQueueAlarmer creates an alarmer publishing through publisher
func NewQueueAlarmer(publisher queue.Publisher, subjectPrefix string, logger *logging.Logger) *QueueAlarmer {
	return &QueueAlarmer{
		publisher: publisher,
		subject:   utils.Subject(subjectPrefix, utils.AlarmSubject),
		logger:    logger.Component("alarm"),
		now:       time.Now,
	}
}

// RaiseAlarm logs the alarm and publishes it
func (a *QueueAlarmer) RaiseAlarm(ctx context.Context, message string, details map[string]interface{}) error {
	al := Alarm{
		ID:       uuid.New().String(),
		Message:  message,
		Context:  details,
		RaisedAt: a.now().UTC(),
	}

	a.logger.WithContext(ctx).Warn("Alarm raised", "alarm_id", al.ID, "message", message)

	data, err := json.Marshal(al)
	if err != nil {
		return fmt.Errorf("failed to marshal alarm: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	if err := a.publisher.Publish(pubCtx, a.subject, data); err != nil {
		return fmt.Errorf("failed to publish alarm: %w", err)
	}
	return nil
}

// Subject returns the subject alarms are published on
func (a *QueueAlarmer) Subject() string {
	return a.subject
}
