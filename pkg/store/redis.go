package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FileEvent is published on the namespace's events channel after every write.
type FileEvent struct {
	Path        string `json:"path"`
	Created     bool   `json:"created"`
	Version     int64  `json:"version"`
	Message     string `json:"message"`
	UpdatedAtMs int64  `json:"updated_at_ms"`
}

// RedisStore keeps evaluation files as Redis hashes, one per file.
// All keys and channels are namespaced. The store is safe for concurrent use.
type RedisStore struct {
	rdb       *redis.Client
	namespace string
	now       func() time.Time
}

// NewRedisStore creates a store for the given namespace.
// Returns an error if namespace is empty.
func NewRedisStore(redisOpts *redis.Options, namespace string) (*RedisStore, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &RedisStore{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
		now:       time.Now,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return s.transportErr("ping", err)
	}
	return nil
}

func (s *RedisStore) transportErr(op string, err error) error {
	if ctxErr := contextErr(err); ctxErr != nil {
		return ctxErr
	}
	return &TransportError{Backend: "redis", Op: op, Err: err}
}

// ListFolder scans for every file key under folder. Hashes that cannot be
// decoded are logged and skipped. A folder with no files is not found.
func (s *RedisStore) ListFolder(ctx context.Context, folder string) (map[string]string, error) {
	cleaned, err := cleanPath(folder)
	if err != nil {
		return nil, err
	}

	prefix := FileKey(s.namespace, "")
	files := make(map[string]string)

	iter := s.rdb.Scan(ctx, 0, folderPattern(s.namespace, cleaned), 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()

		hash, err := s.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, s.transportErr("list", err)
		}
		if len(hash) == 0 {
			// Deleted between SCAN and HGETALL
			continue
		}

		file, err := hashToFile(hash)
		if err != nil {
			log.Printf("[RedisStore] Skipping malformed file %s: %v", key, err)
			continue
		}
		files[strings.TrimPrefix(key, prefix)] = file.Content
	}
	if err := iter.Err(); err != nil {
		return nil, s.transportErr("list", err)
	}

	if len(files) == 0 {
		return nil, &NotFoundError{Backend: "redis", Path: cleaned}
	}
	return files, nil
}

// ReadFile returns the content of a single file.
func (s *RedisStore) ReadFile(ctx context.Context, p string) (string, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return "", err
	}

	hash, err := s.rdb.HGetAll(ctx, FileKey(s.namespace, cleaned)).Result()
	if err != nil {
		return "", s.transportErr("read", err)
	}
	if len(hash) == 0 {
		return "", &NotFoundError{Backend: "redis", Path: cleaned}
	}

	file, err := hashToFile(hash)
	if err != nil {
		return "", &TransportError{Backend: "redis", Op: "read", Err: fmt.Errorf("failed to decode %s: %w", cleaned, err)}
	}
	return file.Content, nil
}

// Exists checks for the file key without fetching it.
func (s *RedisStore) Exists(ctx context.Context, p string) (bool, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, FileKey(s.namespace, cleaned)).Result()
	if err != nil {
		return false, s.transportErr("stat", err)
	}
	return n > 0, nil
}

// WriteFile stores content and bumps the file version in one transaction,
// then publishes a FileEvent. The revision is the new version number.
func (s *RedisStore) WriteFile(ctx context.Context, p, content, commitMessage string) (*WriteResult, error) {
	cleaned, err := cleanFilePath(p)
	if err != nil {
		return nil, err
	}

	existed, err := s.Exists(ctx, cleaned)
	if err != nil {
		return nil, err
	}

	message := commitMessageOrDefault(commitMessage, cleaned)
	now := s.now()
	key := FileKey(s.namespace, cleaned)

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, fileToHash(content, message, now))
	version := pipe.HIncrBy(ctx, key, "version", 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, s.transportErr("write", err)
	}

	event := FileEvent{
		Path:        cleaned,
		Created:     !existed,
		Version:     version.Val(),
		Message:     message,
		UpdatedAtMs: now.UnixMilli(),
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal file event: %w", err)
	}
	if err := s.rdb.Publish(ctx, FileEventsChannel(s.namespace), eventJSON).Err(); err != nil {
		return nil, s.transportErr("publish", err)
	}

	return &WriteResult{
		Path:     cleaned,
		Created:  !existed,
		Backend:  "redis",
		Revision: strconv.FormatInt(event.Version, 10),
	}, nil
}

// Subscription represents an active Pub/Sub subscription to file events.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	events <-chan *FileEvent
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of file events.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Events() <-chan *FileEvent {
	return s.events
}

// Errors returns the channel of subscription errors.
// Malformed events are reported here and skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription. Safe to call multiple times.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe streams every write made to this namespace.
// Returns once Redis has confirmed the subscription, so writes made after
// Subscribe returns are always delivered.
//
// Events are buffered (size 10). Redis Pub/Sub is at-most-once: a subscriber
// that falls behind may miss events.
func (s *RedisStore) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := s.rdb.Subscribe(ctx, FileEventsChannel(s.namespace))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, s.transportErr("subscribe", err)
	}

	eventsChan := make(chan *FileEvent, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event FileEvent
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal file event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
