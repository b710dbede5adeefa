package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/address-tagger/app/models"
	"github.com/address-tagger/app/requests"
	"github.com/address-tagger/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleAddress = "MG Road, Hyderabad, Telangana, 500001"

func TestAddressService_TagAddress(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)

	result, hit, err := as.TagAddress(context.Background(), sampleAddress, requests.TagOptions{})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, sampleAddress, result.Raw)
	assert.Nil(t, result.Tokens)
	assert.Equal(t, as.gazetteer.Version(), result.GazetteerVersion)

	assert.Equal(t, []models.Label{
		models.LabelStreet, models.LabelCity, models.LabelState, models.LabelPin,
	}, result.Components.Labels())
	city, _ := result.Components.Get(models.LabelCity)
	assert.Equal(t, "Hyderabad", city)

	stats := as.GetStats()
	assert.Equal(t, int64(1), stats.Tagged)
	assert.Zero(t, stats.Failed)
}

func TestAddressService_IncludeTokens(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)

	result, _, err := as.TagAddress(context.Background(), sampleAddress, requests.TagOptions{IncludeTokens: true})
	require.NoError(t, err)
	require.Len(t, result.Tokens, 4)
	assert.Equal(t, models.TaggedToken{Token: "500001", Label: models.LabelPin}, result.Tokens[3])
}

func TestAddressService_CachesResults(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(time.Hour)
	as := newTestAddressService(t, ruleTagger{}, cache)
	opts := requests.TagOptions{UseCache: true}

	_, hit, err := as.TagAddress(ctx, sampleAddress, opts)
	require.NoError(t, err)
	assert.False(t, hit)

	result, hit, err := as.TagAddress(ctx, sampleAddress, opts)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Nil(t, result.Tokens)

	withTokens, hit, err := as.TagAddress(ctx, sampleAddress, requests.TagOptions{UseCache: true, IncludeTokens: true})
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, withTokens.Tokens, 4, "cached entries keep their tokens")
}

func TestAddressService_IgnoresCacheFromOtherGazetteer(t *testing.T) {
	ctx := context.Background()
	cache := NewCacheService(time.Hour)
	as := newTestAddressService(t, ruleTagger{}, cache)

	stale := &models.TagResult{Raw: sampleAddress, GazetteerVersion: "old"}
	require.NoError(t, cache.Set(ctx, models.RawFingerprint(sampleAddress), stale))

	result, hit, err := as.TagAddress(ctx, sampleAddress, requests.TagOptions{UseCache: true})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 4, result.Components.Len())
}

func TestAddressService_NoModel(t *testing.T) {
	as := newTestAddressService(t, nil, nil)

	_, _, err := as.TagAddress(context.Background(), sampleAddress, requests.TagOptions{})
	assert.ErrorIs(t, err, parser.ErrModelUnavailable)
	assert.Equal(t, int64(1), as.GetStats().Failed)
	assert.False(t, as.ModelLoaded())

	set := as.Features(sampleAddress)
	assert.Equal(t, []string{"MG Road", "Hyderabad", "Telangana", "500001"}, set.Tokens)
	assert.Len(t, set.Vectors, 4)
	assert.Contains(t, set.Flattened[1], "heirarchy:city")
	assert.Contains(t, set.Flattened[0], "rawstring.start")
}

func TestAddressService_ProcessBatch(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)
	var buf bytes.Buffer

	summary, err := as.ProcessBatch(context.Background(), []string{sampleAddress, "", "Warangal, 506002"}, &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Processed)
	assert.Zero(t, summary.Failed)

	var lines []BatchItem
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var item BatchItem
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &item))
		lines = append(lines, item)
	}
	require.Len(t, lines, 3)
	assert.Equal(t, sampleAddress, lines[0].Raw)
	assert.Equal(t, 4, lines[0].Components.Len())
	assert.Zero(t, lines[1].Components.Len())
	district, _ := lines[2].Components.Get(models.LabelDistrict)
	assert.Equal(t, "Warangal", district)
}

func TestAddressService_ProcessBatchStopsWithoutModel(t *testing.T) {
	as := newTestAddressService(t, nil, nil)
	var buf bytes.Buffer

	_, err := as.ProcessBatch(context.Background(), []string{sampleAddress}, &buf)
	assert.ErrorIs(t, err, parser.ErrModelUnavailable)
	assert.Zero(t, buf.Len())
}

func TestAddressService_ProcessBatchHonoursContext(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := as.ProcessBatch(ctx, []string{sampleAddress}, &bytes.Buffer{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.Processed)
}

func TestAddressService_BatchJob(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)

	job := as.SubmitBatchJob("job_1", []string{sampleAddress, "Telangana"}, requests.TagOptions{})
	assert.Equal(t, 2, job.Total)

	require.Eventually(t, func() bool {
		st, err := as.GetJobStatus("job_1")
		return err == nil && st.Status == JobDone
	}, 2*time.Second, 10*time.Millisecond)

	st, err := as.GetJobStatus("job_1")
	require.NoError(t, err)
	assert.Equal(t, 2, st.Processed)
	assert.InDelta(t, 1.0, st.Progress, 1e-9)

	results, err := as.GetJobResults("job_1")
	require.NoError(t, err)
	require.Len(t, results, 2)
	state, _ := results[1].Components.Get(models.LabelState)
	assert.Equal(t, "Telangana", state)

	stream, err := as.GetJobResultsStream(context.Background(), "job_1")
	require.NoError(t, err)
	count := 0
	for range stream {
		count++
	}
	assert.Equal(t, 2, count)
}

func TestAddressService_BatchJobFailsWithoutModel(t *testing.T) {
	as := newTestAddressService(t, nil, nil)
	as.SubmitBatchJob("job_2", []string{sampleAddress}, requests.TagOptions{})

	require.Eventually(t, func() bool {
		st, err := as.GetJobStatus("job_2")
		return err == nil && st.Status == JobFailed
	}, 2*time.Second, 10*time.Millisecond)

	_, err := as.GetJobResults("job_2")
	assert.ErrorIs(t, err, ErrResultsNotReady)
}

func TestAddressService_UnknownJob(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)

	_, err := as.GetJobStatus("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
	_, err = as.GetJobResults("nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestAddressService_EstimateBatchProcessingTime(t *testing.T) {
	as := newTestAddressService(t, ruleTagger{}, nil)
	assert.Equal(t, 1, as.EstimateBatchProcessingTime(10))
	assert.Equal(t, 20, as.EstimateBatchProcessingTime(20000))
}
