package association

import (
	"sync"

	"github.com/xompass/remote-association/resource"
)

// Owner is a local record that declares remote associations.
type Owner interface {
	GetId() any
	RemoteState() *State
}

// State holds the association cells of one owner record. Models embed it
// (tagged `bson:"-" json:"-"`) and are used through pointers:
//
//	type User struct {
//		association.State `bson:"-" json:"-"`
//		ID int64 `json:"id" bson:"_id"`
//	}
type State struct {
	mu         sync.Mutex
	cells      map[string]*cell
	prefetched bool
}

// cell is unresolved until a value is stored. A resolved cell with no
// objects is the resolved-empty state.
type cell struct {
	mu       sync.Mutex
	resolved bool
	objects  []resource.Object
}

func (s *State) RemoteState() *State {
	return s
}

// Prefetched reports whether a batch prefetch already ran over this record.
func (s *State) Prefetched() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefetched
}

// Resolved reports whether the association name holds a value.
func (s *State) Resolved(name string) bool {
	c := s.cell(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolved
}

func (s *State) markPrefetched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefetched = true
}

func (s *State) cell(name string) *cell {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cells == nil {
		s.cells = map[string]*cell{}
	}
	c, ok := s.cells[name]
	if !ok {
		c = &cell{}
		s.cells[name] = c
	}
	return c
}

func (s *State) store(name string, objects []resource.Object) {
	c := s.cell(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(objects)
}

func (c *cell) set(objects []resource.Object) {
	if objects == nil {
		objects = []resource.Object{}
	}
	c.objects = objects
	c.resolved = true
}

func first(objects []resource.Object) resource.Object {
	if len(objects) == 0 {
		return nil
	}
	return objects[0]
}
