package migration

import (
	"fmt"
	"sort"

	"github.com/altuslabsxyz/checklist-migrator/internal/domain/version"
)

// Registry stores migrations as edges of a directed version graph and plans
// forward paths through it. Neighbors are visited in registration order, so
// equal-length paths resolve deterministically.
type Registry struct {
	edges map[string]*Migration // edge key -> migration
	ids   map[string]*Migration // label -> migration
	graph map[string][]string   // node key -> next node keys
	nodes map[string]version.Version
	order []*Migration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		edges: make(map[string]*Migration),
		ids:   make(map[string]*Migration),
		graph: make(map[string][]string),
		nodes: make(map[string]version.Version),
	}
}

// Register adds m to the graph. The same (from, to) pair or the same ID may
// only be registered once.
func (r *Registry) Register(m *Migration) error {
	if m == nil {
		return fmt.Errorf("%w: migration is nil", ErrInvalidMigrationDefinition)
	}
	if version.Compare(m.From, m.To) >= 0 {
		return fmt.Errorf("%w: %s -> %s does not move forward", ErrInvalidMigrationDefinition, m.From, m.To)
	}
	key := EdgeKey(m.From, m.To)
	if existing, ok := r.edges[key]; ok {
		return fmt.Errorf("%w: %s (registered as %s)", ErrDuplicateMigration, key, existing.Label())
	}
	id := m.ID
	if id == "" {
		id = key
	}
	if existing, ok := r.ids[id]; ok {
		return fmt.Errorf("%w: id %q already used by %s", ErrDuplicateMigration, id, EdgeKey(existing.From, existing.To))
	}

	m.ID = id
	r.edges[key] = m
	r.ids[m.ID] = m
	r.order = append(r.order, m)
	r.graph[m.From.Key()] = append(r.graph[m.From.Key()], m.To.Key())
	r.addNode(m.From)
	r.addNode(m.To)
	return nil
}

// MustRegister registers every migration and panics on the first failure.
func (r *Registry) MustRegister(ms ...*Migration) {
	for _, m := range ms {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) addNode(v version.Version) {
	if _, ok := r.nodes[v.Key()]; !ok {
		r.nodes[v.Key()] = version.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch}
	}
}

// Lookup returns the migration registered for the (from, to) pair.
func (r *Registry) Lookup(from, to version.Version) (*Migration, bool) {
	m, ok := r.edges[EdgeKey(from, to)]
	return m, ok
}

// ByID returns the migration with the given label.
func (r *Registry) ByID(id string) (*Migration, bool) {
	m, ok := r.ids[id]
	return m, ok
}

// Migrations returns every migration in registration order.
func (r *Registry) Migrations() []*Migration {
	return append([]*Migration(nil), r.order...)
}

// Versions returns every graph node in ascending order.
func (r *Registry) Versions() []version.Version {
	out := make([]version.Version, 0, len(r.nodes))
	for _, v := range r.nodes {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Latest returns the highest version present in the graph.
func (r *Registry) Latest() (version.Version, bool) {
	vs := r.Versions()
	if len(vs) == 0 {
		return version.Version{}, false
	}
	return vs[len(vs)-1], true
}

// FindPath returns the shortest forward path from from to to.
func (r *Registry) FindPath(from, to version.Version) (*Path, error) {
	if version.Compare(from, to) == 0 {
		return newPath(from, to, nil), nil
	}
	if version.Compare(from, to) > 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrBackwardMigration, from, to)
	}

	chain := r.bfs(from.Key(), to.Key(), r.graph)
	if chain == nil {
		return nil, fmt.Errorf("%w: %s -> %s", ErrNoPathFound, from, to)
	}

	migrations := make([]*Migration, 0, len(chain)-1)
	for i := 0; i < len(chain)-1; i++ {
		m, ok := r.edges[chain[i]+"->"+chain[i+1]]
		if !ok {
			return nil, fmt.Errorf("%w: missing edge %s -> %s", ErrBrokenChain, chain[i], chain[i+1])
		}
		migrations = append(migrations, m)
	}
	return newPath(from, to, migrations), nil
}

// CanMigrate reports whether FindPath succeeds for the pair.
func (r *Registry) CanMigrate(from, to version.Version) bool {
	_, err := r.FindPath(from, to)
	return err == nil
}

// AvailableTargets returns every version reachable forward from from,
// highest first.
func (r *Registry) AvailableTargets(from version.Version) []version.Version {
	seen := map[string]bool{from.Key(): true}
	queue := []string{from.Key()}
	var out []version.Version
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range r.graph[cur] {
			if seen[next] {
				continue
			}
			seen[next] = true
			out = append(out, r.nodes[next])
			queue = append(queue, next)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[j].Less(out[i]) })
	return out
}

// ReversePath plans a downgrade from from to to using only migrations that
// declare a Reverse transform. It is never used for automatic planning.
func (r *Registry) ReversePath(from, to version.Version) (*Path, error) {
	if version.Compare(from, to) == 0 {
		return newPath(from, to, nil), nil
	}
	if version.Compare(from, to) < 0 {
		return nil, fmt.Errorf("%w: %s -> %s is an upgrade", ErrNoPathFound, from, to)
	}

	reverse := make(map[string][]string)
	for _, m := range r.order {
		if m.Reverse != nil {
			reverse[m.To.Key()] = append(reverse[m.To.Key()], m.From.Key())
		}
	}
	chain := r.bfs(from.Key(), to.Key(), reverse)
	if chain == nil {
		return nil, fmt.Errorf("%w: no reversible path %s -> %s", ErrNoPathFound, from, to)
	}

	migrations := make([]*Migration, 0, len(chain)-1)
	for i := 0; i < len(chain)-1; i++ {
		fwd := r.edges[chain[i+1]+"->"+chain[i]]
		migrations = append(migrations, &Migration{
			ID:          fwd.Label() + ":reverse",
			From:        fwd.To,
			To:          fwd.From,
			Description: "Revert: " + fwd.Description,
			Transform:   fwd.Reverse,
		})
	}
	return newPath(from, to, migrations), nil
}

// bfs returns the node keys of the shortest path from start to goal, or nil.
func (r *Registry) bfs(start, goal string, graph map[string][]string) []string {
	type node struct {
		key  string
		prev *node
	}
	queue := []*node{{key: start}}
	seen := map[string]bool{start: true}
	var end *node
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.key == goal {
			end = cur
			break
		}
		for _, next := range graph[cur.key] {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, &node{key: next, prev: cur})
			}
		}
	}
	if end == nil {
		return nil
	}

	var chain []string
	for n := end; n != nil; n = n.prev {
		chain = append(chain, n.key)
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}
