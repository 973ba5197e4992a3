package schema

import "context"

// FieldDefinition is the wire shape of a Field as returned by a
// SchemaServer (§6).
type FieldDefinition struct {
	Name        string
	Type        FieldType
	Constraints FieldConstraints
}

// RelationshipDefinition is the wire shape of a Relationship.
type RelationshipDefinition struct {
	Name        string
	FromBundle  string
	ToBundle    string
	FromField   string
	ToField     string
	Cardinality Cardinality
}

// BundleDefinition is the wire shape of a Bundle, as returned standalone by
// get_bundle/get_bundles or nested inside a DatabaseDefinition.
type BundleDefinition struct {
	Name          string
	Fields        []FieldDefinition
	Relationships []RelationshipDefinition
	Indexes       []string
}

// DatabaseDefinition is the wire shape of a Database, as returned by
// get_databases or supplied directly to update_context_data.
type DatabaseDefinition struct {
	Name    string
	Bundles []BundleDefinition
}

// PermissionDefinition is the wire shape of a Permission.
type PermissionDefinition struct {
	Principal    string
	Resource     string
	ResourceKind ResourceKind
	Grants       []Grant
}

// MigrationDefinition is the wire shape of a Migration.
type MigrationDefinition struct {
	Name         string
	Statements   []string
	Dependencies []string
	Applied      bool
}

// Server is the schema-server interface consumed by the context and the
// expander (§6). All calls are suspension points; implementations are
// expected to honor ctx cancellation.
type Server interface {
	GetDatabases(ctx context.Context) ([]DatabaseDefinition, error)
	GetBundles(ctx context.Context, database string) ([]BundleDefinition, error)
	GetBundle(ctx context.Context, database, bundle string) (BundleDefinition, error)
	GetFields(ctx context.Context, database, bundle string) ([]FieldDefinition, error)
	GetRelationships(ctx context.Context, database, bundle string) ([]RelationshipDefinition, error)
	GetPermissions(ctx context.Context) ([]PermissionDefinition, error)
	GetMigrations(ctx context.Context) ([]MigrationDefinition, error)
}

func bundleFromDefinition(database string, def BundleDefinition) *Bundle {
	b := &Bundle{
		Name:          def.Name,
		Database:      database,
		Fields:        make(map[string]*Field, len(def.Fields)),
		Relationships: make(map[string]*Relationship, len(def.Relationships)),
		Indexes:       append([]string{}, def.Indexes...),
	}
	for _, f := range def.Fields {
		b.Fields[f.Name] = &Field{Name: f.Name, Type: f.Type, Constraints: f.Constraints}
	}
	for _, r := range def.Relationships {
		b.Relationships[r.Name] = &Relationship{
			Name:        r.Name,
			FromBundle:  r.FromBundle,
			ToBundle:    r.ToBundle,
			FromField:   r.FromField,
			ToField:     r.ToField,
			Cardinality: r.Cardinality,
		}
	}
	return b
}

func databaseFromDefinition(def DatabaseDefinition) *Database {
	d := &Database{Name: def.Name, Bundles: make(map[string]*Bundle, len(def.Bundles))}
	for _, b := range def.Bundles {
		d.Bundles[b.Name] = bundleFromDefinition(def.Name, b)
	}
	return d
}

func permissionFromDefinition(def PermissionDefinition) *Permission {
	p := &Permission{Principal: def.Principal, Resource: def.Resource, ResourceKind: def.ResourceKind, Grants: make(map[Grant]struct{}, len(def.Grants))}
	for _, g := range def.Grants {
		p.Grants[g] = struct{}{}
	}
	return p
}

func migrationFromDefinition(def MigrationDefinition) *Migration {
	return &Migration{
		Name:         def.Name,
		Statements:   append([]string{}, def.Statements...),
		Dependencies: append([]string{}, def.Dependencies...),
		Applied:      def.Applied,
	}
}
