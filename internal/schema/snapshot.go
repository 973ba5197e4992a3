package schema

// Snapshot is the serializable form of a Context, as produced by ToCache
// and consumed by LoadFromCache (§4.5: "to_cache() serializes all maps").
// It is plain data so that any persistence backend (the JSON file store
// used by the statement cache, or the sqlitestore backend) can round-trip
// it without depending on Context internals.
type Snapshot struct {
	Databases       []DatabaseDefinition
	Permissions     []PermissionDefinition
	Migrations      []MigrationDefinition
	CurrentDatabase string
	LastRefreshTime int64 // unix seconds, 0 if never refreshed
}

// ToCache serializes the full schema picture into a Snapshot.
func (c *Context) ToCache() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{}
	if !c.lastRefreshTime.IsZero() {
		snap.LastRefreshTime = c.lastRefreshTime.Unix()
	}
	if c.currentDatabase != nil {
		snap.CurrentDatabase = *c.currentDatabase
	}
	for _, db := range c.databases {
		snap.Databases = append(snap.Databases, databaseToDefinition(db))
	}
	for _, p := range c.permissions {
		grants := make([]Grant, 0, len(p.Grants))
		for g := range p.Grants {
			grants = append(grants, g)
		}
		snap.Permissions = append(snap.Permissions, PermissionDefinition{
			Principal: p.Principal, Resource: p.Resource, ResourceKind: p.ResourceKind, Grants: grants,
		})
	}
	for _, m := range c.migrations {
		snap.Migrations = append(snap.Migrations, MigrationDefinition{
			Name: m.Name, Statements: m.Statements, Dependencies: m.Dependencies, Applied: m.Applied,
		})
	}
	return snap
}

// LoadFromCache restores a Context from a local snapshot, entering
// StateStale ("load_from_cache(blob) restores from a local snapshot with
// state stale", §4.5) since a cached picture is never treated as
// server-fresh.
func (c *Context) LoadFromCache(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.databases = make(map[string]*Database, len(snap.Databases))
	for _, def := range snap.Databases {
		c.databases[def.Name] = databaseFromDefinition(def)
	}
	c.permissions = make(map[string]*Permission, len(snap.Permissions))
	for _, def := range snap.Permissions {
		p := permissionFromDefinition(def)
		c.permissions[p.Principal+":"+p.Resource] = p
	}
	c.migrations = make(map[string]*Migration, len(snap.Migrations))
	for _, def := range snap.Migrations {
		c.migrations[def.Name] = migrationFromDefinition(def)
	}
	if snap.CurrentDatabase != "" {
		db := snap.CurrentDatabase
		c.currentDatabase = &db
	}
	c.state = StateStale
}

func databaseToDefinition(db *Database) DatabaseDefinition {
	def := DatabaseDefinition{Name: db.Name}
	for _, b := range db.Bundles {
		bundleDef := BundleDefinition{Name: b.Name, Indexes: append([]string{}, b.Indexes...)}
		for _, f := range b.Fields {
			bundleDef.Fields = append(bundleDef.Fields, FieldDefinition{Name: f.Name, Type: f.Type, Constraints: f.Constraints})
		}
		for _, r := range b.Relationships {
			bundleDef.Relationships = append(bundleDef.Relationships, RelationshipDefinition{
				Name: r.Name, FromBundle: r.FromBundle, ToBundle: r.ToBundle,
				FromField: r.FromField, ToField: r.ToField, Cardinality: r.Cardinality,
			})
		}
		def.Bundles = append(def.Bundles, bundleDef)
	}
	return def
}
