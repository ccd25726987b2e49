package services

import (
	"context"
	"sync"
	"time"

	"glowUpAPI/internal/logger"
	"glowUpAPI/internal/notification"
)

type PushNotificationProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

// NotificationDispatcher delivers queued notifications through the push
// provider on a fixed pool of workers.
type NotificationDispatcher struct {
	pushProvider PushNotificationProvider
	workers      int
	jobQueue     chan *DispatchJob
	stopChan     chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
}

type DispatchJob struct {
	Notification *notification.Notification
	Tokens       []notification.DeviceToken
}

func NewNotificationDispatcher(provider PushNotificationProvider, workers, queueSize int) *NotificationDispatcher {
	if workers <= 0 {
		workers = 5
	}
	if queueSize <= 0 {
		queueSize = 100
	}

	dispatcher := &NotificationDispatcher{
		pushProvider: provider,
		workers:      workers,
		jobQueue:     make(chan *DispatchJob, queueSize),
		stopChan:     make(chan struct{}),
	}
	dispatcher.startWorkers()
	return dispatcher
}

func (d *NotificationDispatcher) startWorkers() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
}

func (d *NotificationDispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case job := <-d.jobQueue:
			d.processJob(job)
		case <-d.stopChan:
			return
		}
	}
}

func (d *NotificationDispatcher) processJob(job *DispatchJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	notif := job.Notification
	if len(job.Tokens) == 0 || d.pushProvider == nil {
		logger.Debug("skipping push", "user", notif.UserID, "tokens", len(job.Tokens), "provider", d.pushProvider != nil)
		pushDispatchTotal.WithLabelValues("skipped").Inc()
		return
	}

	if err := d.pushProvider.SendPush(ctx, job.Tokens, notif.Title, notif.Message, notif.Data); err != nil {
		logger.Warn("push failed", "user", notif.UserID, "type", notif.Type, "err", err)
		pushDispatchTotal.WithLabelValues("failed").Inc()
		return
	}
	pushDispatchTotal.WithLabelValues("sent").Inc()
}

// Dispatch queues a job. It gives up after a short wait when the queue is
// full so request paths are never held up by push delivery.
func (d *NotificationDispatcher) Dispatch(job *DispatchJob) bool {
	select {
	case <-d.stopChan:
		return false
	default:
	}

	select {
	case d.jobQueue <- job:
		return true
	case <-d.stopChan:
		return false
	case <-time.After(time.Second):
		logger.Warn("notification queue full, dropping", "user", job.Notification.UserID, "type", job.Notification.Type)
		pushDispatchTotal.WithLabelValues("dropped").Inc()
		return false
	}
}

// Stop the dispatcher gracefully. Jobs still queued are discarded.
func (d *NotificationDispatcher) Stop() {
	d.stopOnce.Do(func() {
		logger.Info("stopping notification dispatcher")
		close(d.stopChan)
		d.wg.Wait()
	})
}

// LogPushProvider only logs. It stands in when FCM credentials are missing.
type LogPushProvider struct{}

func (LogPushProvider) SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error {
	logger.Info("push (log only)", "devices", len(tokens), "title", title, "body", body)
	return nil
}
