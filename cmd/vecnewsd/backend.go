package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"git.tdpain.net/codemicro/vecnews/aggregator"
	"git.tdpain.net/codemicro/vecnews/cmd/vecnewsd/internal/config"
	"git.tdpain.net/codemicro/vecnews/events"
	"git.tdpain.net/codemicro/vecnews/kv"
	"git.tdpain.net/codemicro/vecnews/newssource"
	"git.tdpain.net/codemicro/vecnews/posts"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// backend is everything a command needs to read and write news.
type backend struct {
	Posts      *posts.Store
	Aggregator *aggregator.Aggregator

	closers []func() error
}

func (b *backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errs = append(errs, b.closers[i]())
	}
	return errors.Join(errs...)
}

// openBackendFunc builds the backend described by conf.
type openBackendFunc func(ctx context.Context, conf *config.Config) (*backend, error)

func openBackend(ctx context.Context, conf *config.Config) (*backend, error) {
	b := new(backend)

	store, err := kv.Open(ctx, conf.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", conf.Store.Backend, err)
	}
	b.closers = append(b.closers, store.Close)

	notifier, err := openNotifier(ctx, conf, b)
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	b.Posts = posts.New(store, posts.WithNotifier(notifier))
	b.Aggregator = aggregator.New(newsSource(conf), b.Posts)
	return b, nil
}

func newsSource(conf *config.Config) aggregator.NewsSource {
	if conf.NewsProvider == config.ProviderRSS {
		slog.Debug("using RSS news source", "feeds", len(conf.RSSFeeds))
		return newssource.NewRSS(conf.RSSFeeds, conf.FetchTimeout, nil)
	}
	if conf.NewsAPIKey == "" {
		slog.Warn("VECNEWS_NEWSAPI_KEY not set, serving sample articles")
	}
	return newssource.NewNewsAPI(newssource.NewsAPIOptions{
		BaseURL: conf.NewsAPIURL,
		APIKey:  conf.NewsAPIKey,
		Country: conf.NewsAPICountry,
		Timeout: conf.FetchTimeout,
	})
}

// openNotifier publishes post events to Kafka when a broker is configured,
// otherwise to an in-process bus that logs them.
func openNotifier(ctx context.Context, conf *config.Config, b *backend) (events.Notifier, error) {
	if conf.KafkaBroker != "" {
		k := events.NewKafkaNotifier(conf.KafkaBroker, conf.KafkaTopic)
		b.closers = append(b.closers, k.Close)
		return k, nil
	}

	bus := gochannel.NewGoChannel(gochannel.Config{BlockPublishUntilSubscriberAck: true}, watermill.NewStdLogger(false, false))
	b.closers = append(b.closers, bus.Close)

	if err := events.LogSubscriber(ctx, bus, conf.KafkaTopic); err != nil {
		return nil, err
	}
	return events.NewBusNotifier(bus, conf.KafkaTopic), nil
}
