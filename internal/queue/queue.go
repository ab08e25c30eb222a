package queue

import "context"

// UploadEvent is one "process this upload" message: the object the client
// finished uploading.
type UploadEvent struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Handler processes one upload event. Returning an error leaves the
// message on the queue for redelivery.
type Handler func(ctx context.Context, event UploadEvent) error

// Consumer delivers upload events to a handler. Delivery is at-least-once;
// handlers must tolerate duplicates.
type Consumer interface {
	Run(ctx context.Context, handle Handler) error
}
