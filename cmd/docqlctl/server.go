package main

import (
	"context"

	"github.com/querycanvas/langservice/internal/schema"
)

// offlineServer is the schema.Server used when docqlctl is pointed at a
// file with no live backend configured: every call reports "no rows",
// which degrades validation and suggestions gracefully rather than
// failing the command outright (§4.5's server-error-never-propagates
// rule, exercised here at the CLI boundary too).
type offlineServer struct{}

func (offlineServer) GetDatabases(context.Context) ([]schema.DatabaseDefinition, error) {
	return nil, nil
}
func (offlineServer) GetBundles(context.Context, string) ([]schema.BundleDefinition, error) {
	return nil, nil
}
func (offlineServer) GetBundle(context.Context, string, string) (schema.BundleDefinition, error) {
	return schema.BundleDefinition{}, nil
}
func (offlineServer) GetFields(context.Context, string, string) ([]schema.FieldDefinition, error) {
	return nil, nil
}
func (offlineServer) GetRelationships(context.Context, string, string) ([]schema.RelationshipDefinition, error) {
	return nil, nil
}
func (offlineServer) GetPermissions(context.Context) ([]schema.PermissionDefinition, error) {
	return nil, nil
}
func (offlineServer) GetMigrations(context.Context) ([]schema.MigrationDefinition, error) {
	return nil, nil
}
