package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/groupcart-backend/pkg/config"
)

func TestResourceNames(t *testing.T) {
	cases := []struct {
		name    string
		project string
		input   string
		topic   string
		sub     string
	}{
		{name: "short id", project: "gc-dev", input: "domain", topic: "projects/gc-dev/topics/domain", sub: "projects/gc-dev/subscriptions/domain"},
		{name: "trimmed", project: " gc-dev ", input: " domain ", topic: "projects/gc-dev/topics/domain", sub: "projects/gc-dev/subscriptions/domain"},
		{name: "empty name", project: "gc-dev", input: "", topic: "", sub: ""},
		{name: "missing project", project: "", input: "domain", topic: "", sub: ""},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := TopicResourceName(tc.project, tc.input); got != tc.topic {
				t.Fatalf("topic: expected %q got %q", tc.topic, got)
			}
			if got := SubscriptionResourceName(tc.project, tc.input); got != tc.sub {
				t.Fatalf("subscription: expected %q got %q", tc.sub, got)
			}
		})
	}
}

func TestResourceNamePassesThroughFullNames(t *testing.T) {
	full := "projects/other/topics/events"
	if got := TopicResourceName("gc-dev", full); got != full {
		t.Fatalf("expected passthrough, got %q", got)
	}
	// a topic path is not a valid subscription path
	if got := SubscriptionResourceName("gc-dev", full); got == full {
		t.Fatalf("topic path should not pass as subscription")
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	if _, err := NewClient(ctx, config.GCPConfig{}, config.PubSubConfig{DomainTopic: "domain"}, nil); err != errProjectIDRequired {
		t.Fatalf("expected project id error, got %v", err)
	}
	if _, err := NewClient(ctx, config.GCPConfig{ProjectID: "gc-dev"}, config.PubSubConfig{}, nil); err != errTopicRequired {
		t.Fatalf("expected topic error, got %v", err)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var c *Client
	if c.Publisher("domain") != nil {
		t.Fatal("expected nil publisher")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}
