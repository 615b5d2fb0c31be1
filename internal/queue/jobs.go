// Package queue defines the asynq task types shared by the API and the
// worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// ThumbnailTask is scheduled once per image upload.
	ThumbnailTask = "thumbnail:generate"
)

// ThumbnailPayload is serialized into the task so the worker knows which
// record's blob to scale.
type ThumbnailPayload struct {
	FileID  int64 `json:"file_id"`
	OwnerID int64 `json:"owner_id"`
}

// Client wraps the asynq producer side.
type Client struct {
	client *asynq.Client
}

// NewClient constructs a producer over redis.
func NewClient(opt asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(opt)}
}

// Close releases the underlying connections.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueThumbnail enqueues one thumbnail job for the given record.
func (c *Client) EnqueueThumbnail(ctx context.Context, fileID, ownerID int64) error {
	data, err := json.Marshal(ThumbnailPayload{FileID: fileID, OwnerID: ownerID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(ThumbnailTask, data)
	if _, err := c.client.EnqueueContext(ctx, task, asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("enqueue thumbnail task: %w", err)
	}
	return nil
}
