// Package upload tracks files attached to a pending message through their
// upload lifecycle and posts them when the message is sent.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/backend"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrent bounds simultaneous uploads when no limit is given.
const DefaultMaxConcurrent = 4

// ErrEmptyChannel is returned for operations without a channel id.
var ErrEmptyChannel = errors.New("channel id cannot be empty")

// Store persists the uploaded collection of each channel.
type Store interface {
	Load(channelID string) ([]domain.QueuedFile, error)
	Save(channelID string, files []domain.QueuedFile) error
}

// Options configure a Queue.
type Options struct {
	MaxConcurrent int
	// Folder is the server-side folder uploads are filed under.
	Folder  string
	Metrics metrics.Recorder
	Logger  logging.Logger
	Now     func() time.Time
	NewID   func() string
}

// Queue owns the uploading and uploaded collections of one session.
type Queue struct {
	files    backend.FileService
	messages backend.MessageService
	store    Store
	opts     Options
	log      logging.Logger
	sem      *semaphore.Weighted
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.Mutex
	uploading map[string][]*domain.QueuedFile
	uploaded  map[string][]domain.QueuedFile
	loaded    map[string]bool
	sending   map[string]bool
	changed   chan struct{} // closed and replaced on every collection change
	closed    bool

	// lastEnqueued keeps enqueue times strictly increasing so display order
	// follows attach order.
	lastEnqueued int64

	inflight sync.WaitGroup
}

// NewQueue creates a queue uploading through files, posting through
// messages and persisting completed uploads in store.
func NewQueue(files backend.FileService, messages backend.MessageService, store Store, opts Options) *Queue {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobal()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		files:     files,
		messages:  messages,
		store:     store,
		opts:      opts,
		log:       opts.Logger.With("component", "upload"),
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		ctx:       ctx,
		cancel:    cancel,
		uploading: make(map[string][]*domain.QueuedFile),
		uploaded:  make(map[string][]domain.QueuedFile),
		loaded:    make(map[string]bool),
		sending:   make(map[string]bool),
		changed:   make(chan struct{}),
	}
}

// Attach queues every file for upload to channelID and returns their
// client ids in the same order. Uploads run concurrently, at most
// MaxConcurrent at a time.
func (q *Queue) Attach(ctx context.Context, channelID string, raws []domain.RawFile) []string {
	ids := make([]string, 0, len(raws))
	if channelID == "" || len(raws) == 0 {
		return ids
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ids
	}
	for _, raw := range raws {
		rec := &domain.QueuedFile{
			ID:               q.opts.NewID(),
			ChannelID:        channelID,
			FileName:         raw.Name,
			SizeBytes:        raw.Size,
			EnqueuedAtMillis: q.enqueueTimeLocked(),
			Status:           domain.StatusUploading,
		}
		q.uploading[channelID] = append(q.uploading[channelID], rec)
		ids = append(ids, rec.ID)
		q.inflight.Add(1)
		go q.upload(channelID, rec.ID, raw)
	}
	q.mu.Unlock()

	q.log.Info("files attached", "channel_id", channelID, "count", len(ids))
	return ids
}

func (q *Queue) upload(channelID, id string, raw domain.RawFile) {
	defer q.inflight.Done()

	if err := q.sem.Acquire(q.ctx, 1); err != nil {
		q.fail(channelID, id, err)
		return
	}
	defer q.sem.Release(1)

	if q.find(channelID, id) == nil {
		return
	}

	dest := domain.Destination{ChannelID: channelID, Folder: q.opts.Folder}
	res, err := q.files.UploadFile(q.ctx, raw, dest, func(fraction float64) {
		q.progress(channelID, id, fraction)
	})
	if err != nil {
		q.fail(channelID, id, err)
		return
	}
	q.complete(channelID, id, res)
}

func (q *Queue) progress(channelID, id string, fraction float64) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rec := q.findLocked(channelID, id); rec != nil && rec.Status == domain.StatusUploading {
		rec.ProgressPercent = domain.ClampPercent(fraction)
	}
}

func (q *Queue) fail(channelID, id string, err error) {
	q.mu.Lock()
	rec := q.findLocked(channelID, id)
	if rec != nil {
		rec.Status = domain.StatusError
		rec.Error = err.Error()
		q.broadcastLocked()
	}
	q.mu.Unlock()

	if rec != nil {
		q.opts.Metrics.IncUploads(string(domain.StatusError))
		q.log.Warn("upload failed", "channel_id", channelID, "file_id", id, "error", err)
	}
}

// complete moves id from the uploading to the uploaded collection and
// persists the result in one critical section. A result for a record
// removed while in flight is discarded and its server file deleted.
func (q *Queue) complete(channelID, id string, res domain.UploadedFile) {
	q.mu.Lock()
	rec := q.findLocked(channelID, id)
	if rec == nil {
		q.mu.Unlock()
		q.log.Info("upload finished after removal", "channel_id", channelID, "file_id", id)
		if res.ServerFileID != "" {
			if err := q.files.DeleteFile(q.ctx, res.ServerFileID); err != nil {
				q.log.Warn("unable to delete orphaned upload", "server_file_id", res.ServerFileID, "error", err)
			}
		}
		return
	}

	done := *rec
	done.Status = domain.StatusUploaded
	done.ProgressPercent = 100
	done.ServerFileID = res.ServerFileID
	done.ServerFileURL = res.ServerFileURL
	done.Error = ""

	current, loadErr := q.uploadedLocked(channelID)
	next := make([]domain.QueuedFile, 0, len(current)+1)
	next = append(next, current...)
	next = append(next, done)
	if loadErr != nil {
		// kept in memory and merged into the stored collection once it loads
		q.log.Warn("uploaded files not loaded, deferring persist", "channel_id", channelID, "error", loadErr)
	} else if err := q.store.Save(channelID, next); err != nil {
		q.log.Warn("unable to persist uploaded files", "channel_id", channelID, "error", err)
	}
	q.uploaded[channelID] = next
	q.removeUploadingLocked(channelID, id)
	q.broadcastLocked()
	q.mu.Unlock()

	q.opts.Metrics.IncUploads(string(domain.StatusUploaded))
	q.log.Info("upload completed", "channel_id", channelID, "file_id", id, "server_file_id", res.ServerFileID)
}

// Remove drops id from the channel. An uploaded file is removed locally
// first and then deleted on the server; a failed delete is returned but
// not rolled back. Unknown ids are ignored.
func (q *Queue) Remove(ctx context.Context, channelID, id string) error {
	if channelID == "" {
		return ErrEmptyChannel
	}

	q.mu.Lock()
	if q.findLocked(channelID, id) != nil {
		q.removeUploadingLocked(channelID, id)
		q.broadcastLocked()
		q.mu.Unlock()
		q.log.Info("file removed", "channel_id", channelID, "file_id", id, "uploaded", false)
		return nil
	}

	current, loadErr := q.uploadedLocked(channelID)
	idx := -1
	for i := range current {
		if current[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		q.mu.Unlock()
		if loadErr != nil {
			return fmt.Errorf("load uploaded files: %w", loadErr)
		}
		return nil
	}
	removed := current[idx]
	next := make([]domain.QueuedFile, 0, len(current)-1)
	next = append(next, current[:idx]...)
	next = append(next, current[idx+1:]...)
	var persistErr error
	if loadErr == nil {
		persistErr = q.store.Save(channelID, next)
	}
	q.uploaded[channelID] = next
	q.broadcastLocked()
	q.mu.Unlock()

	q.log.Info("file removed", "channel_id", channelID, "file_id", id, "uploaded", true)
	var err error
	if persistErr != nil {
		err = multierr.Append(err, fmt.Errorf("persist uploaded files: %w", persistErr))
	}
	if removed.HasServerFile() {
		if delErr := q.files.DeleteFile(ctx, removed.ServerFileID); delErr != nil {
			err = multierr.Append(err, fmt.Errorf("delete server file %s: %w", removed.ServerFileID, delErr))
		}
	}
	return err
}

// Files returns the uploading and uploaded files of channelID ordered by
// enqueue time.
func (q *Queue) Files(channelID string) []domain.QueuedFile {
	q.mu.Lock()
	out := make([]domain.QueuedFile, 0)
	uploaded, _ := q.uploadedLocked(channelID)
	out = append(out, uploaded...)
	for _, rec := range q.uploading[channelID] {
		out = append(out, *rec)
	}
	q.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EnqueuedAtMillis < out[j].EnqueuedAtMillis
	})
	return out
}

// Send waits until no file of channelID is still uploading and no other
// send for it is running, then creates one message per uploaded file. On
// full success the sent files leave the uploaded collection; any failure
// leaves it unchanged and is returned.
func (q *Queue) Send(ctx context.Context, channelID string) error {
	if channelID == "" {
		return ErrEmptyChannel
	}

	var files []domain.QueuedFile
	for {
		q.mu.Lock()
		if !q.pendingLocked(channelID) && !q.sending[channelID] {
			uploaded, err := q.uploadedLocked(channelID)
			if err != nil {
				q.mu.Unlock()
				return fmt.Errorf("load uploaded files: %w", err)
			}
			files = append(files, uploaded...)
			q.sending[channelID] = true
			q.mu.Unlock()
			break
		}
		wait := q.changed
		q.mu.Unlock()

		q.log.Debug("send waiting for uploads", "channel_id", channelID)
		select {
		case <-ctx.Done():
			return fmt.Errorf("wait for uploads in %s: %w", channelID, ctx.Err())
		case <-wait:
		}
	}
	defer func() {
		q.mu.Lock()
		delete(q.sending, channelID)
		q.broadcastLocked()
		q.mu.Unlock()
	}()
	if len(files) == 0 {
		return nil
	}

	var (
		wg    sync.WaitGroup
		errMu sync.Mutex
		errs  error
	)
	for _, f := range files {
		wg.Add(1)
		go func(f domain.QueuedFile) {
			defer wg.Done()
			_, err := q.messages.CreateMessage(ctx, channelID, domain.FileMessage(f))
			if err != nil {
				q.opts.Metrics.IncMessagesSent(metrics.ResultError)
				errMu.Lock()
				errs = multierr.Append(errs, fmt.Errorf("send %s: %w", f.FileName, err))
				errMu.Unlock()
				return
			}
			q.opts.Metrics.IncMessagesSent(metrics.ResultOK)
		}(f)
	}
	wg.Wait()

	if errs != nil {
		q.log.Warn("send failed", "channel_id", channelID, "failed", len(multierr.Errors(errs)), "total", len(files))
		return errs
	}

	sent := make(map[string]struct{}, len(files))
	for _, f := range files {
		sent[f.ID] = struct{}{}
	}
	q.mu.Lock()
	current, _ := q.uploadedLocked(channelID)
	next := make([]domain.QueuedFile, 0, len(current))
	for _, f := range current {
		if _, ok := sent[f.ID]; !ok {
			next = append(next, f)
		}
	}
	persistErr := q.store.Save(channelID, next)
	q.uploaded[channelID] = next
	q.broadcastLocked()
	q.mu.Unlock()

	q.log.Info("attachments sent", "channel_id", channelID, "count", len(files))
	if persistErr != nil {
		return fmt.Errorf("persist uploaded files: %w", persistErr)
	}
	return nil
}

// Wait blocks until every upload goroutine has finished.
func (q *Queue) Wait() {
	q.inflight.Wait()
}

// Close cancels uploads that are still running and waits for them.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.inflight.Wait()
}

func (q *Queue) enqueueTimeLocked() int64 {
	now := q.opts.Now().UnixMilli()
	if now <= q.lastEnqueued {
		now = q.lastEnqueued + 1
	}
	q.lastEnqueued = now
	return now
}

func (q *Queue) find(channelID, id string) *domain.QueuedFile {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.findLocked(channelID, id)
}

func (q *Queue) findLocked(channelID, id string) *domain.QueuedFile {
	for _, rec := range q.uploading[channelID] {
		if rec.ID == id {
			return rec
		}
	}
	return nil
}

func (q *Queue) removeUploadingLocked(channelID, id string) {
	recs := q.uploading[channelID]
	for i, rec := range recs {
		if rec.ID == id {
			q.uploading[channelID] = append(recs[:i:i], recs[i+1:]...)
			break
		}
	}
	if len(q.uploading[channelID]) == 0 {
		delete(q.uploading, channelID)
	}
}

func (q *Queue) pendingLocked(channelID string) bool {
	for _, rec := range q.uploading[channelID] {
		if rec.Status == domain.StatusUploading {
			return true
		}
	}
	return false
}

// uploadedLocked returns the uploaded collection, loading it from the
// store on first use. Until a load succeeds it returns the in-memory files
// with the load error, and callers must not persist what it returned.
// Files completed in the meantime are merged into the stored collection
// and written back once the load succeeds.
func (q *Queue) uploadedLocked(channelID string) ([]domain.QueuedFile, error) {
	if q.loaded[channelID] {
		return q.uploaded[channelID], nil
	}
	stored, err := q.store.Load(channelID)
	if err != nil {
		q.log.Warn("unable to load uploaded files", "channel_id", channelID, "error", err)
		return q.uploaded[channelID], err
	}

	known := make(map[string]struct{}, len(stored))
	for _, f := range stored {
		known[f.ID] = struct{}{}
	}
	merged := stored
	for _, f := range q.uploaded[channelID] {
		if _, ok := known[f.ID]; !ok {
			merged = append(merged, f)
		}
	}
	if len(merged) > len(stored) {
		if err := q.store.Save(channelID, merged); err != nil {
			q.log.Warn("unable to persist uploaded files", "channel_id", channelID, "error", err)
		}
	}
	q.uploaded[channelID] = merged
	q.loaded[channelID] = true
	return merged, nil
}

func (q *Queue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
