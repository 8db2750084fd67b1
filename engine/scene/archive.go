package scene

import (
	"fmt"
	"io"

	"github.com/Carmen-Shannon/oxy-scene/engine/ecs"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// archiveDocument is the YAML layout of a scene archive. Components are keyed by the name
// their store is registered under.
type archiveDocument struct {
	Entities []archiveEntity `yaml:"entities"`
}

type archiveEntity struct {
	ID         ecs.Entity            `yaml:"id"`
	Components map[string]*yaml.Node `yaml:"components"`
}

// encodeEntities snapshots every component of the given entities.
func (s *scene) encodeEntities(entities []ecs.Entity) (archiveDocument, error) {
	doc := archiveDocument{Entities: make([]archiveEntity, 0, len(entities))}
	for _, e := range entities {
		ae := archiveEntity{ID: e, Components: make(map[string]*yaml.Node)}
		for _, st := range s.library.Stores() {
			node, err := st.MarshalEntity(e)
			if err != nil {
				return archiveDocument{}, err
			}
			if node != nil {
				ae.Components[st.Name()] = node
			}
		}
		doc.Entities = append(doc.Entities, ae)
	}
	return doc, nil
}

// decodeEntities creates a fresh entity per archived one and points references between
// archived entities at the new ids. References to entities outside the archive are kept.
// Components that fail to decode are skipped and reported together.
//
// Returns:
//   - []ecs.Entity: the created entities in archive order
//   - map[ecs.Entity]ecs.Entity: archived id to created id
//   - error: every decode failure, nil when all components loaded
func (s *scene) decodeEntities(doc archiveDocument) ([]ecs.Entity, map[ecs.Entity]ecs.Entity, error) {
	ids := make(map[ecs.Entity]ecs.Entity, len(doc.Entities))
	for _, ae := range doc.Entities {
		if _, ok := ids[ae.ID]; !ok {
			ids[ae.ID] = ecs.CreateEntity()
		}
	}
	remap := func(old ecs.Entity) ecs.Entity {
		if e, ok := ids[old]; ok {
			return e
		}
		return old
	}

	var errs error
	created := make([]ecs.Entity, 0, len(doc.Entities))
	for _, ae := range doc.Entities {
		e := ids[ae.ID]
		created = append(created, e)
		for name := range ae.Components {
			if s.library.Get(name) == nil {
				errs = multierr.Append(errs, fmt.Errorf("entity %d: unknown component kind %q", ae.ID, name))
			}
		}
		for _, st := range s.library.Stores() {
			node, ok := ae.Components[st.Name()]
			if !ok || node == nil || st.Contains(e) {
				continue
			}
			c, err := st.UnmarshalEntity(e, node)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			if r, ok := c.(entityRemapper); ok {
				r.RemapEntities(remap)
			}
		}
	}

	s.sortHierarchy()
	for _, e := range created {
		if mesh := s.meshes.Get(e); mesh != nil {
			mesh.CreateRenderData(s.device)
		}
	}
	return created, ids, errs
}

// subtree returns root followed by its descendants, parents before children.
func (s *scene) subtree(root ecs.Entity) []ecs.Entity {
	out := []ecs.Entity{root}
	for i := 0; i < len(out); i++ {
		out = append(out, s.children(out[i])...)
	}
	return out
}

// Entity_Duplicate round trips the entity and its descendants through an in-memory archive.
func (s *scene) Entity_Duplicate(e ecs.Entity) ecs.Entity {
	doc, err := s.encodeEntities(s.subtree(e))
	if err != nil {
		panic(fmt.Sprintf("scene: failed to duplicate entity %d: %v", e, err))
	}
	_, ids, err := s.decodeEntities(doc)
	if err != nil {
		panic(fmt.Sprintf("scene: failed to duplicate entity %d: %v", e, err))
	}
	return ids[e]
}

// Archive writes every entity that owns at least one component.
func (s *scene) Archive(w io.Writer) error {
	seen := make(map[ecs.Entity]struct{})
	var entities []ecs.Entity
	for _, st := range s.library.Stores() {
		for _, e := range st.Entities() {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			entities = append(entities, e)
		}
	}
	doc, err := s.encodeEntities(entities)
	if err != nil {
		return fmt.Errorf("scene: archive %q: %w", s.name, err)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("scene: archive %q: %w", s.name, err)
	}
	return enc.Close()
}

func (s *scene) LoadArchive(r io.Reader) ([]ecs.Entity, error) {
	var doc archiveDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("scene: decode archive: %w", err)
	}
	created, _, err := s.decodeEntities(doc)
	if err != nil {
		err = fmt.Errorf("scene: load archive: %w", err)
	}
	return created, err
}
