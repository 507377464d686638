package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	registry, err := NewRegistry(namedJob(JobCartExpiry), namedJob(JobOutboxRetention))
	require.NoError(t, err)
	assert.Equal(t, []string{JobCartExpiry, JobOutboxRetention}, registry.Names())

	job, ok := registry.Lookup(" " + JobOutboxRetention)
	require.True(t, ok)
	assert.Equal(t, JobOutboxRetention, job.Name())
	_, ok = registry.Lookup("inventory-sync")
	assert.False(t, ok)

	jobs := registry.Jobs()
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0], "Jobs must return a copy")
}

func TestRegistryRejectsBadJobs(t *testing.T) {
	cases := []struct {
		name string
		jobs []Job
	}{
		{name: "nil job", jobs: []Job{nil}},
		{name: "blank name", jobs: []Job{namedJob("  ")}},
		{name: "duplicate", jobs: []Job{namedJob(JobCartExpiry), namedJob(JobCartExpiry)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.jobs...)
			assert.Error(t, err)
		})
	}
}
