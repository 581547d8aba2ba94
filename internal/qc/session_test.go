package qc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/pregled/internal/model"
)

func newTestSession(t *testing.T, f *fakeBackend, category string) *Session {
	t.Helper()
	s, err := NewSession(context.Background(), testDeps(f), qcItem("qc-001", category))
	require.NoError(t, err)
	return s
}

func TestNewSessionSeedsResults(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Power Tools")

	v := s.View()
	assert.Equal(t, StateCollecting, v.State)
	require.Len(t, v.Results, len(powerTools))
	for i, r := range v.Results {
		assert.Equal(t, powerTools[i].ID, r.ChecklistItemID)
		assert.False(t, r.Passed)
		assert.Empty(t, r.Notes)
		assert.Empty(t, r.PhotoURL)
	}
	assert.Equal(t, model.OverallDamageFound, v.OverallStatus)
}

func TestNewSessionUnknownCategory(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Garden Tools")

	v := s.View()
	assert.Empty(t, v.Results)
	assert.Equal(t, model.OverallPass, v.OverallStatus)
	assert.True(t, v.CanSubmit)
}

func TestNewSessionFetchFailure(t *testing.T) {
	f := newFakeBackend()
	f.checklistErr = errBackend

	_, err := NewSession(context.Background(), testDeps(f), qcItem("qc-001", "Power Tools"))
	assert.ErrorIs(t, err, errBackend)
}

func TestSessionSetResultMerges(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Power Tools")

	require.NoError(t, s.SetResult("pt-002", Patch{Notes: ptr("grinding noise")}))
	require.NoError(t, s.SetResult("pt-002", Patch{Passed: ptr(true)}))

	r := s.View().Results[1]
	assert.True(t, r.Passed)
	assert.Equal(t, "grinding noise", r.Notes)
}

func TestSessionSetResultUnknownCriterion(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Power Tools")
	before := s.View().Results

	assert.NoError(t, s.SetResult("se-001", Patch{Passed: ptr(true)}))
	assert.Equal(t, before, s.View().Results)
}

func TestSessionDeriveStatus(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Power Tools")
	for _, c := range powerTools {
		require.NoError(t, s.SetResult(c.ID, Patch{Passed: ptr(true)}))
	}
	assert.Equal(t, model.OverallPass, s.DeriveStatus())

	require.NoError(t, s.SetResult("pt-004", Patch{Passed: ptr(false)}))
	assert.Equal(t, model.OverallDamageFound, s.DeriveStatus())
}

func TestSessionCanSubmit(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Power Tools")
	for _, c := range powerTools {
		require.NoError(t, s.SetResult(c.ID, Patch{Passed: ptr(true)}))
	}
	assert.True(t, s.CanSubmit())

	// Failed critical criterion without a photo requirement.
	require.NoError(t, s.SetResult("pt-002", Patch{Passed: ptr(false)}))
	assert.True(t, s.CanSubmit())

	require.NoError(t, s.SetResult("pt-001", Patch{Passed: ptr(false)}))
	assert.False(t, s.CanSubmit())
	assert.Equal(t, []string{"pt-001"}, s.View().MissingPhotos)

	require.NoError(t, s.SetResult("pt-001", Patch{PhotoURL: ptr("x")}))
	assert.True(t, s.CanSubmit())
}

func TestSessionPowerToolsScenario(t *testing.T) {
	f := newFakeBackend()
	s := newTestSession(t, f, "Power Tools")
	ctx := context.Background()

	for _, c := range powerTools {
		require.NoError(t, s.SetResult(c.ID, Patch{Passed: ptr(c.ID != "pt-003")}))
	}
	assert.False(t, s.CanSubmit())

	_, err := s.Submit(ctx)
	assert.ErrorIs(t, err, ErrMissingPhoto)
	assert.True(t, IsValidation(err))
	assert.Zero(t, f.batches)
	assert.Equal(t, StateCollecting, s.State())

	url, err := s.AttachPhoto(ctx, "pt-003", "crack.jpg", strings.NewReader("jpeg"))
	require.NoError(t, err)
	assert.True(t, s.CanSubmit())

	result, err := s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.OverallDamageFound, result.OverallStatus)
	assert.Equal(t, []string{url}, result.Photos)
	assert.Equal(t, "inspector-7", result.InspectorID)
	assert.Equal(t, StateComplete, s.State())

	require.Len(t, f.submitted, 1)
	assert.Equal(t, result, f.submitted[0])
}

func TestSessionInspectionDateWithinSession(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Garden Tools")

	result, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, result.InspectionDate.Before(s.StartedAt()))
	require.NotNil(t, result.StartedAt)
	assert.True(t, result.StartedAt.Equal(s.StartedAt()))
}

func TestSessionSubmitFailure(t *testing.T) {
	f := newFakeBackend()
	f.submitErr = errBackend
	s := newTestSession(t, f, "Garden Tools")
	ctx := context.Background()

	_, err := s.Submit(ctx)
	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, StateFailed, s.State())
	assert.NotEmpty(t, s.View().LastError)

	f.setSubmitErr(nil)
	_, err = s.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, s.State())
	assert.Equal(t, 2, f.batches)
}

func TestSessionEditAfterFailureReturnsToReviewing(t *testing.T) {
	f := newFakeBackend()
	f.submitErr = errBackend
	s := newTestSession(t, f, "Power Tools")
	for _, c := range powerTools {
		require.NoError(t, s.SetResult(c.ID, Patch{Passed: ptr(true)}))
	}

	_, err := s.Submit(context.Background())
	require.Error(t, err)

	require.NoError(t, s.SetNotes("second attempt"))
	assert.Equal(t, StateReviewing, s.State())
}

func TestSessionClosedAfterComplete(t *testing.T) {
	s := newTestSession(t, newFakeBackend(), "Garden Tools")
	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetResult("pt-001", Patch{}), ErrSessionClosed)
	assert.ErrorIs(t, s.SetNotes("late"), ErrSessionClosed)
	assert.ErrorIs(t, s.Cancel(), ErrSessionClosed)
	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionAttachPhotoUnknownCriterion(t *testing.T) {
	f := newFakeBackend()
	s := newTestSession(t, f, "Power Tools")

	_, err := s.AttachPhoto(context.Background(), "se-001", "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnknownCriterion)
	assert.Zero(t, f.uploads)
}

func TestSessionAttachPhotoFailure(t *testing.T) {
	f := newFakeBackend()
	f.uploadErr = errBackend
	s := newTestSession(t, f, "Power Tools")

	_, err := s.AttachPhoto(context.Background(), "pt-001", "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, errBackend)
	assert.Empty(t, s.View().Results[0].PhotoURL)
	assert.False(t, s.CanSubmit())
}

func TestSessionUploadDiscardedAfterCancel(t *testing.T) {
	f := newFakeBackend()
	f.uploadStarted = make(chan struct{})
	f.uploadRelease = make(chan struct{})
	s := newTestSession(t, f, "Power Tools")

	errc := make(chan error, 1)
	go func() {
		_, err := s.AttachPhoto(context.Background(), "pt-001", "a.jpg", strings.NewReader("x"))
		errc <- err
	}()

	<-f.uploadStarted
	assert.Equal(t, []string{"pt-001"}, s.View().Uploading)
	require.NoError(t, s.Cancel())
	close(f.uploadRelease)

	assert.ErrorIs(t, <-errc, ErrSessionClosed)
	v := s.View()
	assert.Empty(t, v.Uploading)
	assert.Empty(t, v.Results[0].PhotoURL)
	assert.Equal(t, StateCancelled, v.State)
}

func TestSessionOnComplete(t *testing.T) {
	f := newFakeBackend()
	deps := testDeps(f)
	calls := 0
	deps.OnComplete = func(ctx context.Context) { calls++ }

	s, err := NewSession(context.Background(), deps, qcItem("qc-001", "Garden Tools"))
	require.NoError(t, err)
	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestSessionAttachPhotoWhileSubmitting(t *testing.T) {
	f := newFakeBackend()
	f.submitStarted = make(chan struct{})
	f.submitRelease = make(chan struct{})
	s := newTestSession(t, f, "Power Tools")
	for _, c := range powerTools {
		require.NoError(t, s.SetResult(c.ID, Patch{Passed: ptr(true)}))
	}

	done := make(chan error)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	<-f.submitStarted

	_, err := s.AttachPhoto(context.Background(), "pt-001", "a.jpg", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrSubmitting)
	assert.Zero(t, f.uploads)

	close(f.submitRelease)
	require.NoError(t, <-done)
	assert.Equal(t, StateComplete, s.State())
}

func TestSessionPhotoDuringSubmitIsRefused(t *testing.T) {
	f := newFakeBackend()
	f.uploadStarted = make(chan struct{})
	f.uploadRelease = make(chan struct{})
	f.submitStarted = make(chan struct{})
	f.submitRelease = make(chan struct{})
	s := newTestSession(t, f, "Power Tools")
	for _, c := range powerTools {
		require.NoError(t, s.SetResult(c.ID, Patch{Passed: ptr(true)}))
	}
	ctx := context.Background()

	attached := make(chan error)
	go func() {
		_, err := s.AttachPhoto(ctx, "pt-001", "cord.jpg", strings.NewReader("x"))
		attached <- err
	}()
	<-f.uploadStarted

	submitted := make(chan error)
	go func() {
		_, err := s.Submit(ctx)
		submitted <- err
	}()
	<-f.submitStarted

	close(f.uploadRelease)
	assert.ErrorIs(t, <-attached, ErrSubmitting)

	close(f.submitRelease)
	require.NoError(t, <-submitted)
	require.Len(t, f.submitted, 1)
	assert.Empty(t, f.submitted[0].ChecklistResults[0].PhotoURL)
}

func TestSessionAttachPhotoAfterFailureReturnsToReviewing(t *testing.T) {
	f := newFakeBackend()
	f.submitErr = errBackend
	s := newTestSession(t, f, "Power Tools")
	for _, c := range powerTools {
		require.NoError(t, s.SetResult(c.ID, Patch{Passed: ptr(true)}))
	}
	_, err := s.Submit(context.Background())
	require.Error(t, err)
	require.Equal(t, StateFailed, s.State())

	url, err := s.AttachPhoto(context.Background(), "pt-001", "cord.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, StateReviewing, s.State())
	assert.Equal(t, url, s.View().Results[0].PhotoURL)
}
