package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/ehdrbdndns/steelart-dashboard/internal/domain"
)

const channelPrefix = "steelart:"

// Channel returns the pub/sub channel that carries events of one collection.
func Channel(collection string, parentID int64) string {
	return fmt.Sprintf("%s%s:%d", channelPrefix, collection, parentID)
}

type SignalService struct {
	rdb *redis.Client
}

func NewSignalService(redisClient *redis.Client) *SignalService {
	return &SignalService{
		rdb: redisClient,
	}
}

func (s *SignalService) PublishCollectionEvent(ctx context.Context, event domain.CollectionEvent) error {
	if s.rdb == nil {
		return nil
	}

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal collection event")
	}

	err = s.rdb.Publish(ctx, Channel(event.Collection, event.ParentID), jsonstr).Err()
	if err != nil {
		return errors.Wrap(err, "publish collection event")
	}

	return nil
}

// subscriptionTargets splits listen requests into exact channels and
// patterns. "course-items:12" names one collection; a bare collection name
// such as "home-banners" or "course-items:" covers all of its collections.
func subscriptionTargets(prefixes []string) (channels, patterns []string) {
	for _, p := range prefixes {
		collection, parent, found := strings.Cut(p, ":")
		switch {
		case collection == "":
			continue
		case found && parent != "":
			channels = append(channels, channelPrefix+p)
		default:
			patterns = append(patterns, channelPrefix+collection+":*")
		}
	}
	return channels, patterns
}

// Realtime relays events to output until ctx is done. Every value received on
// input is a list of collections (for example "course-items:12" or
// "home-banners") to subscribe to in addition to the previous ones.
func (s *SignalService) Realtime(ctx context.Context, input <-chan []string, output chan<- domain.CollectionEvent) {
	if s.rdb == nil {
		<-ctx.Done()
		return
	}

	pubsub := s.rdb.Subscribe(ctx)
	defer pubsub.Close()

	messages := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case prefixes, ok := <-input:
			if !ok {
				return
			}
			channels, patterns := subscriptionTargets(prefixes)
			if len(channels) > 0 {
				if err := pubsub.Subscribe(ctx, channels...); err != nil {
					slog.ErrorContext(ctx, "subscribe failed",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}
			if len(patterns) > 0 {
				if err := pubsub.PSubscribe(ctx, patterns...); err != nil {
					slog.ErrorContext(ctx, "pattern subscribe failed",
						slog.String("error", err.Error()),
						slog.String("module", "signal"),
					)
				}
			}
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var event domain.CollectionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.WarnContext(
					ctx, "Malformed collection event",
					slog.String("channel", msg.Channel),
					slog.String("error", err.Error()),
					slog.String("module", "signal"),
				)
				continue
			}
			select {
			case output <- event:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Follow calls fn for every event of the given collections until ctx is done.
func (s *SignalService) Follow(ctx context.Context, collections []string, fn func(domain.CollectionEvent)) {
	input := make(chan []string, 1)
	input <- collections
	output := make(chan domain.CollectionEvent)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Realtime(ctx, input, output)
	}()

	for {
		select {
		case <-done:
			return
		case event := <-output:
			fn(event)
		}
	}
}
