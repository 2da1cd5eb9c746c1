package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/capbridge/capbridge/internal/usecase"
)

func newSyncFixture(source *MockRouteSource, binder *MockBinder) *usecase.SyncSourceUseCase {
	registry := new(MockRegistry)
	registry.On("Register", mock.Anything).Return(nil)
	build := usecase.NewBuildCapabilitiesUseCase(nil, registry, testLogger())
	return usecase.NewSyncSourceUseCase(source, build, binder, testLogger())
}

func TestSyncSourceUseCase_Execute(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	cfg := usecase.SourceConfig{URL: "http://svc.example.com/openapi.json"}

	source := new(MockRouteSource)
	source.On("Fetch", mock.Anything, cfg).Return(validRoutes(), "http://api.example.com", nil).Once()
	binder := new(MockBinder)
	binder.On("Bind", mock.Anything).Return(nil).Times(3)

	uc := newSyncFixture(source, binder)
	report, err := uc.Execute(ctx, cfg)

	assert.NoError(err)
	assert.Len(report.Built, 3)
	assert.Empty(report.Failed)
	source.AssertExpectations(t)
	binder.AssertExpectations(t)
}

func TestSyncSourceUseCase_FetchFailureAbortsSource(t *testing.T) {
	assert := assert.New(t)
	cfg := usecase.SourceConfig{URL: "http://down.example.com"}

	source := new(MockRouteSource)
	source.On("Fetch", mock.Anything, cfg).Return(nil, "", errors.New("connection refused")).Once()
	binder := new(MockBinder)

	uc := newSyncFixture(source, binder)
	_, err := uc.Execute(context.Background(), cfg)

	assert.Error(err)
	assert.Contains(err.Error(), "connection refused")
	binder.AssertNotCalled(t, "Bind", mock.Anything)
}

func TestSyncSourceUseCase_BindFailureIsReportedNotFatal(t *testing.T) {
	assert := assert.New(t)
	cfg := usecase.SourceConfig{URL: "http://svc.example.com/openapi.json"}

	source := new(MockRouteSource)
	source.On("Fetch", mock.Anything, cfg).Return(validRoutes()[:1], "http://api.example.com", nil).Once()
	binder := new(MockBinder)
	binder.On("Bind", mock.Anything).Return(errors.New("bad uri template")).Once()

	uc := newSyncFixture(source, binder)
	report, err := uc.Execute(context.Background(), cfg)

	assert.NoError(err)
	assert.Len(report.Failed, 1)
	assert.Contains(report.Failed[0].Err.Error(), "bad uri template")
}

func TestSyncSourceUseCase_ExecuteAllContinuesPastFailures(t *testing.T) {
	assert := assert.New(t)
	good := usecase.SourceConfig{URL: "http://good.example.com/openapi.json"}
	bad := usecase.SourceConfig{URL: "http://bad.example.com"}

	source := new(MockRouteSource)
	source.On("Fetch", mock.Anything, bad).Return(nil, "", errors.New("boom")).Once()
	source.On("Fetch", mock.Anything, good).Return(validRoutes(), "http://api.example.com", nil).Once()
	binder := new(MockBinder)
	binder.On("Bind", mock.Anything).Return(nil)

	uc := newSyncFixture(source, binder)
	err := uc.ExecuteAll(context.Background(), []usecase.SourceConfig{bad, good})

	// The failing source surfaces as the returned error, but the good source
	// was still synced.
	assert.Error(err)
	source.AssertExpectations(t)
	binder.AssertNumberOfCalls(t, "Bind", 3)
}
