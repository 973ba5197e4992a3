package schema

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultStalenessThreshold is how long a fresh context remains fresh
// without a refresh before Context.State reports it as stale (§6).
const DefaultStalenessThreshold = 5 * time.Minute

// Context is the server-authoritative, locally-editable schema model
// consumed by the validators and the suggestion engine (§3, §4.5). All
// accessors take a read lock; refresh_from_server and the local-edit
// methods take a write lock and leave the context in a well-defined state
// even on failure.
type Context struct {
	mu                sync.RWMutex
	databases         map[string]*Database
	permissions       map[string]*Permission
	migrations        map[string]*Migration
	currentDatabase   *string
	state             State
	lastRefreshTime   time.Time
	stalenessThreshold time.Duration
}

// New builds an empty Context in the stale state, as if no refresh has
// ever happened.
func New(stalenessThreshold time.Duration) *Context {
	if stalenessThreshold <= 0 {
		stalenessThreshold = DefaultStalenessThreshold
	}
	return &Context{
		databases:          make(map[string]*Database),
		permissions:        make(map[string]*Permission),
		migrations:         make(map[string]*Migration),
		state:              StateStale,
		stalenessThreshold: stalenessThreshold,
	}
}

// State reports the effective state: "stale" also covers a context whose
// last refresh has aged past the staleness threshold, even though the
// stored state field still says "fresh" (§3: "stale if state=error or
// now - last_refresh_time > staleness_threshold").
func (c *Context) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.effectiveStateLocked()
}

func (c *Context) effectiveStateLocked() State {
	if c.state == StateError || c.state == StateRefreshing {
		return c.state
	}
	if c.state == StateFresh && time.Since(c.lastRefreshTime) > c.stalenessThreshold {
		return StateStale
	}
	return c.state
}

// LastRefreshTime returns the timestamp of the most recent successful
// refresh, zero if none has ever succeeded.
func (c *Context) LastRefreshTime() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRefreshTime
}

// CurrentDatabase returns the active database name, or "" if unset.
func (c *Context) CurrentDatabase() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.currentDatabase == nil {
		return ""
	}
	return *c.currentDatabase
}

// SetCurrentDatabase changes the active database. An empty name clears it.
func (c *Context) SetCurrentDatabase(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		c.currentDatabase = nil
		return
	}
	c.currentDatabase = &name
}

// HasDatabase reports whether a database by that name is known.
func (c *Context) HasDatabase(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.databases[name]
	return ok
}

// GetDatabase returns a database by name, if known. The returned value is
// a snapshot copy safe to read without holding the context's lock.
func (c *Context) GetDatabase(name string) (Database, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[name]
	if !ok {
		return Database{}, false
	}
	return *d, true
}

// GetAllDatabases returns every known database name, unordered.
func (c *Context) GetAllDatabases() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.databases))
	for name := range c.databases {
		out = append(out, name)
	}
	return out
}

// HasBundle reports whether database/bundle both exist.
func (c *Context) HasBundle(database, bundle string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[database]
	if !ok {
		return false
	}
	_, ok = d.Bundles[bundle]
	return ok
}

// GetBundle returns a bundle by database/name, if known.
func (c *Context) GetBundle(database, bundle string) (Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[database]
	if !ok {
		return Bundle{}, false
	}
	b, ok := d.Bundles[bundle]
	if !ok {
		return Bundle{}, false
	}
	return *b, true
}

// GetAllBundles returns every bundle name in a database, unordered.
func (c *Context) GetAllBundles(database string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[database]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(d.Bundles))
	for name := range d.Bundles {
		out = append(out, name)
	}
	return out
}

// HasField reports whether database/bundle/field all exist.
func (c *Context) HasField(database, bundle, field string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[database]
	if !ok {
		return false
	}
	b, ok := d.Bundles[bundle]
	if !ok {
		return false
	}
	_, ok = b.Fields[field]
	return ok
}

// GetField returns a field by database/bundle/name, if known.
func (c *Context) GetField(database, bundle, field string) (Field, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[database]
	if !ok {
		return Field{}, false
	}
	b, ok := d.Bundles[bundle]
	if !ok {
		return Field{}, false
	}
	f, ok := b.Fields[field]
	if !ok {
		return Field{}, false
	}
	return *f, true
}

// GetAllFields returns every field name of a bundle, unordered.
func (c *Context) GetAllFields(database, bundle string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[database]
	if !ok {
		return nil
	}
	b, ok := d.Bundles[bundle]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(b.Fields))
	for name := range b.Fields {
		out = append(out, name)
	}
	return out
}

// GetRelationships returns every relationship declared on a bundle.
func (c *Context) GetRelationships(database, bundle string) []Relationship {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.databases[database]
	if !ok {
		return nil
	}
	b, ok := d.Bundles[bundle]
	if !ok {
		return nil
	}
	out := make([]Relationship, 0, len(b.Relationships))
	for _, r := range b.Relationships {
		out = append(out, *r)
	}
	return out
}

// GetPermissions returns every known permission.
func (c *Context) GetPermissions() []Permission {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Permission, 0, len(c.permissions))
	for _, p := range c.permissions {
		out = append(out, *p)
	}
	return out
}

// GetMigration returns a migration by name, if known.
func (c *Context) GetMigration(name string) (Migration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.migrations[name]
	if !ok {
		return Migration{}, false
	}
	return *m, true
}

// GetAllMigrations returns every migration name, unordered.
func (c *Context) GetAllMigrations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.migrations))
	for name := range c.migrations {
		out = append(out, name)
	}
	return out
}

// hasCircularDependency does a DFS over migration dependencies starting at
// name, returning true if name is reachable from one of its own
// dependencies, using the classic loading-set cycle guard: a name enters
// visited on entry and leaves it on return, so only the current path (not
// every name ever seen) blocks recursion. visited is empty again once the
// call returns; callers pass an empty map on the initial call.
func (c *Context) hasCircularDependency(name string, visited map[string]bool) bool {
	if visited[name] {
		return true
	}
	visited[name] = true
	defer delete(visited, name)

	m, ok := c.migrations[name]
	if !ok {
		return false
	}
	for _, dep := range m.Dependencies {
		if c.hasCircularDependency(dep, visited) {
			return true
		}
	}
	return false
}

// HasCircularDependency is the exported, lock-held form of
// hasCircularDependency for external callers (validators).
func (c *Context) HasCircularDependency(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasCircularDependency(name, make(map[string]bool))
}

// ValidateMigrationDependencies reports whether every dependency of name is
// itself a known migration, and whether the dependency graph rooted at name
// contains a cycle.
func (c *Context) ValidateMigrationDependencies(name string) DependencyCheck {
	c.mu.RLock()
	defer c.mu.RUnlock()

	m, ok := c.migrations[name]
	if !ok {
		return DependencyCheck{Valid: false, Missing: []string{name}}
	}
	var missing []string
	for _, dep := range m.Dependencies {
		if _, ok := c.migrations[dep]; !ok {
			missing = append(missing, dep)
		}
	}
	if c.hasCircularDependency(name, make(map[string]bool)) {
		return DependencyCheck{Valid: false, Missing: missing}
	}
	return DependencyCheck{Valid: len(missing) == 0, Missing: missing}
}

// refreshRetryAttempts bounds refresh_from_server's backoff before it gives
// up and reports StateError (§4.5: "server errors are recoverable").
const refreshRetryAttempts = 3

// RefreshFromServer pulls the full schema picture from server in the order
// databases -> bundles -> fields/relationships -> permissions -> migrations
// and commits it atomically on success. It enters StateRefreshing for the
// duration and sets StateFresh/last_refresh_time on success or StateError on
// failure, per the §4.5 state machine. Each server call is retried with
// bounded exponential backoff rather than failing on the first transient
// error.
func (c *Context) RefreshFromServer(ctx context.Context, server Server) error {
	c.mu.Lock()
	c.state = StateRefreshing
	c.mu.Unlock()

	databases, err := fetchWithRetry(ctx, func(ctx context.Context) ([]DatabaseDefinition, error) {
		return server.GetDatabases(ctx)
	})
	if err != nil {
		c.markError()
		return err
	}

	newDatabases := make(map[string]*Database, len(databases))
	for _, dbDef := range databases {
		db := databaseFromDefinition(dbDef)
		newDatabases[db.Name] = db

		for bundleName, bundle := range db.Bundles {
			fields, err := fetchWithRetry(ctx, func(ctx context.Context) ([]FieldDefinition, error) {
				return server.GetFields(ctx, db.Name, bundleName)
			})
			if err != nil {
				c.markError()
				return err
			}
			for _, f := range fields {
				bundle.Fields[f.Name] = &Field{Name: f.Name, Type: f.Type, Constraints: f.Constraints}
			}

			rels, err := fetchWithRetry(ctx, func(ctx context.Context) ([]RelationshipDefinition, error) {
				return server.GetRelationships(ctx, db.Name, bundleName)
			})
			if err != nil {
				c.markError()
				return err
			}
			for _, r := range rels {
				bundle.Relationships[r.Name] = &Relationship{
					Name: r.Name, FromBundle: r.FromBundle, ToBundle: r.ToBundle,
					FromField: r.FromField, ToField: r.ToField, Cardinality: r.Cardinality,
				}
			}
		}
	}

	permissions, err := fetchWithRetry(ctx, func(ctx context.Context) ([]PermissionDefinition, error) {
		return server.GetPermissions(ctx)
	})
	if err != nil {
		c.markError()
		return err
	}
	newPermissions := make(map[string]*Permission, len(permissions))
	for _, p := range permissions {
		perm := permissionFromDefinition(p)
		newPermissions[perm.Principal+":"+perm.Resource] = perm
	}

	migrations, err := fetchWithRetry(ctx, func(ctx context.Context) ([]MigrationDefinition, error) {
		return server.GetMigrations(ctx)
	})
	if err != nil {
		c.markError()
		return err
	}
	newMigrations := make(map[string]*Migration, len(migrations))
	for _, m := range migrations {
		newMigrations[m.Name] = migrationFromDefinition(m)
	}

	c.mu.Lock()
	c.databases = newDatabases
	c.permissions = newPermissions
	c.migrations = newMigrations
	c.state = StateFresh
	c.lastRefreshTime = time.Now()
	c.mu.Unlock()
	return nil
}

func (c *Context) markError() {
	c.mu.Lock()
	c.state = StateError
	c.mu.Unlock()
}

func fetchWithRetry[T any](ctx context.Context, call func(context.Context) (T, error)) (T, error) {
	var result T
	backoff := retry.WithMaxRetries(refreshRetryAttempts, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		v, err := call(ctx)
		if err != nil {
			slog.Debug("schema server call failed, will retry", "error", err)
			return retry.RetryableError(err)
		}
		result = v
		return nil
	})
	return result, err
}

// UpdateDatabase performs a local, server-independent edit and forces the
// context back to StateStale, per §4.5 ("update_database / update_bundle
// perform local edits and force state back to stale").
func (c *Context) UpdateDatabase(db Database) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stored := &db
	if stored.Bundles == nil {
		stored.Bundles = make(map[string]*Bundle)
	}
	c.databases[db.Name] = stored
	c.state = StateStale
}

// UpdateBundle performs a local edit of one bundle and forces the context
// back to StateStale.
func (c *Context) UpdateBundle(database string, bundle Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.databases[database]
	if !ok {
		db = &Database{Name: database, Bundles: make(map[string]*Bundle)}
		c.databases[database] = db
	}
	stored := bundle
	stored.Database = database
	db.Bundles[bundle.Name] = &stored
	c.state = StateStale
}

// cacheBundleFromServer writes a bundle the expander just fetched live from
// server into the context without forcing StateStale: unlike UpdateBundle
// (a host-originated local edit, §4.5), this data came from the same
// authoritative source RefreshFromServer trusts, so it must not make an
// otherwise-fresh context look stale.
func (c *Context) cacheBundleFromServer(database string, bundle Bundle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	db, ok := c.databases[database]
	if !ok {
		db = &Database{Name: database, Bundles: make(map[string]*Bundle)}
		c.databases[database] = db
	}
	stored := bundle
	stored.Database = database
	db.Bundles[bundle.Name] = &stored
}

// UpdateContextData replaces the whole database set from a host-supplied
// definition list (the facade's update_context_data operation, §6), forcing
// the context to StateStale since it did not come from a tracked refresh.
func (c *Context) UpdateContextData(defs []DatabaseDefinition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	newDatabases := make(map[string]*Database, len(defs))
	for _, def := range defs {
		newDatabases[def.Name] = databaseFromDefinition(def)
	}
	c.databases = newDatabases
	c.state = StateStale
}
