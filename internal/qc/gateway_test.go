package qc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/pregled/internal/model"
)

func TestGatewaySubmitOne(t *testing.T) {
	f := newFakeBackend()
	g := NewGateway(f)

	require.NoError(t, g.SubmitOne(context.Background(), model.Result{ItemID: "qc-001"}))
	assert.Len(t, f.submitted, 1)
}

func TestGatewayWrapsSinkErrors(t *testing.T) {
	f := newFakeBackend()
	f.submitErr = errBackend
	g := NewGateway(f)

	err := g.SubmitOne(context.Background(), model.Result{ItemID: "qc-001"})
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Equal(t, 1, subErr.Items)
	assert.ErrorIs(t, err, errBackend)
	assert.False(t, IsValidation(err))
}

func TestGatewaySubmitBatch(t *testing.T) {
	f := newFakeBackend()
	g := NewGateway(f)
	batch := []model.Result{{ItemID: "qc-001"}, {ItemID: "qc-002"}}

	outcomes, err := g.SubmitBatch(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{
		{ItemID: "qc-001", Status: OutcomeSubmitted},
		{ItemID: "qc-002", Status: OutcomeSubmitted},
	}, outcomes)
	assert.Equal(t, 1, f.batches)
}
