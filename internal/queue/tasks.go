package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/framepost/framepost/internal/domain"
	"github.com/hibiken/asynq"
)

const TypePostProcessCapture = "capture:postprocess"

type PostProcessPayload struct {
	JobID       string            `json:"job_id"`
	SourceType  string            `json:"source_type"`
	WebhookURL  string            `json:"webhook_url,omitempty"`
	ObjectKey   string            `json:"object_key"`
	Facing      string            `json:"facing"`
	Quality     int               `json:"quality,omitempty"`
	Steps       []domain.StepSpec `json:"steps,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
}

func NewPostProcessTask(payload PostProcessPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal postprocess payload: %w", err)
	}
	return asynq.NewTask(TypePostProcessCapture, body), nil
}

func ParsePostProcessPayload(task *asynq.Task) (PostProcessPayload, error) {
	var payload PostProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PostProcessPayload{}, fmt.Errorf("unmarshal postprocess payload: %w", err)
	}
	return payload, nil
}
