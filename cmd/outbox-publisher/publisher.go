package main

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// topicPublishers caches one publisher per topic. Pub/Sub publishers batch
// and own background goroutines, so they must outlive a single message.
type topicPublishers struct {
	open    publisherFactory
	byTopic map[string]publisher
}

func newTopicPublishers(open publisherFactory) *topicPublishers {
	return &topicPublishers{open: open, byTopic: make(map[string]publisher)}
}

func (t *topicPublishers) get(topic string) publisher {
	if pub, ok := t.byTopic[topic]; ok {
		return pub
	}
	pub := t.open(topic)
	if pub != nil {
		t.byTopic[topic] = pub
	}
	return pub
}

func (t *topicPublishers) stopAll() {
	for topic, pub := range t.byTopic {
		if stopper, ok := pub.(interface{ Stop() }); ok {
			stopper.Stop()
		}
		delete(t.byTopic, topic)
	}
}

func pubsubFactory(client pubSubClient, domainTopic string) publisherFactory {
	return func(topic string) publisher {
		if topic == domainTopic {
			return newOrderedPublisher(client.DomainPublisher())
		}
		return newOrderedPublisher(client.Publisher(topic))
	}
}

// orderedPublisher publishes with message ordering enabled. Pub/Sub pauses an
// ordering key after a failed publish, so the key is resumed before the row
// comes back on the next batch.
type orderedPublisher struct {
	p *gcppubsub.Publisher
}

func newOrderedPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	p.EnableMessageOrdering = true
	return &orderedPublisher{p: p}
}

func (o *orderedPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	key := msg.OrderingKey
	return &orderedResult{
		res:    o.p.Publish(ctx, msg),
		resume: func() { o.p.ResumePublish(key) },
	}
}

func (o *orderedPublisher) Stop() {
	o.p.Stop()
}

type orderedResult struct {
	res    *gcppubsub.PublishResult
	resume func()
}

func (r *orderedResult) Get(ctx context.Context) (string, error) {
	if r.res == nil {
		return "", errors.New("publish result is nil")
	}
	id, err := r.res.Get(ctx)
	if err != nil {
		r.resume()
	}
	return id, err
}
