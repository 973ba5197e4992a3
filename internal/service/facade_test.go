package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/querycanvas/langservice/internal/config"
	"github.com/querycanvas/langservice/internal/schema"
)

type stubServer struct{}

func (stubServer) GetDatabases(context.Context) ([]schema.DatabaseDefinition, error) { return nil, nil }
func (stubServer) GetBundles(context.Context, string) ([]schema.BundleDefinition, error) {
	return nil, nil
}
func (stubServer) GetBundle(context.Context, string, string) (schema.BundleDefinition, error) {
	return schema.BundleDefinition{}, nil
}
func (stubServer) GetFields(context.Context, string, string) ([]schema.FieldDefinition, error) {
	return nil, nil
}
func (stubServer) GetRelationships(context.Context, string, string) ([]schema.RelationshipDefinition, error) {
	return nil, nil
}
func (stubServer) GetPermissions(context.Context) ([]schema.PermissionDefinition, error) {
	return nil, nil
}
func (stubServer) GetMigrations(context.Context) ([]schema.MigrationDefinition, error) { return nil, nil }

func testConfig() config.Config {
	cfg := config.Default()
	cfg.ValidationDebounceDelay = 5 * time.Millisecond
	return cfg
}

func TestNewFacadeStartsUninitializedWithMintedDocumentID(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.Equal(t, StateUninitialized, f.State())
	require.NotEmpty(t, f.DocumentID())
}

func TestWithDocumentIDPinsTheSuppliedID(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{}, WithDocumentID("doc-1"))
	require.Equal(t, "doc-1", f.DocumentID())
}

func TestInitializeTransitionsToInitialized(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.NoError(t, f.Initialize(context.Background()))
	require.Equal(t, StateInitialized, f.State())
}

func TestInitializeTwiceReturnsError(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.NoError(t, f.Initialize(context.Background()))
	require.Error(t, f.Initialize(context.Background()))
}

func TestUpdateDocumentBeforeInitializeReturnsError(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.Error(t, f.UpdateDocument("SELECT * FROM orders;"))
}

func TestUpdateDocumentMarksFacadeActiveAndSplitsStatements(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.NoError(t, f.Initialize(context.Background()))
	require.NoError(t, f.UpdateDocument("SELECT * FROM orders; SELECT * FROM users;"))
	require.Equal(t, StateActive, f.State())
	require.Len(t, f.ParseStatements(), 2)
}

func TestValidateForcesDrainAndAggregatesDiagnostics(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.NoError(t, f.Initialize(context.Background()))
	require.NoError(t, f.UpdateDocument("SELECT FROM;"))
	result, err := f.Validate(context.Background())
	require.NoError(t, err)
	require.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
}

func TestRenderLinesReflectsLatestDocumentText(t *testing.T) {
	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.NoError(t, f.Initialize(context.Background()))
	require.NoError(t, f.UpdateDocument("SELECT 1;"))
	lines := f.RenderLines()
	require.NotEmpty(t, lines)
}

func TestDisposeIsIdempotentAndLeavesNoGoroutinesBehind(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := New(LanguageDocQL, testConfig(), stubServer{})
	require.NoError(t, f.Initialize(context.Background()))
	require.NoError(t, f.UpdateDocument("SELECT 1;"))
	f.Dispose()
	f.Dispose()
	require.Equal(t, StateDisposed, f.State())
}
