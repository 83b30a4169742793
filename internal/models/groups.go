package models

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrFrozen is returned when appending to a Groups mapping that has already been labeled.
var ErrFrozen = errors.New("requirement groups are frozen after labeling")

// Group is one named, ordered sequence of requirements.
type Group struct {
	Name         string         `json:"group" yaml:"group"`
	Requirements []*Requirement `json:"requirements" yaml:"requirements"`
}

// Groups is an insertion-ordered mapping from group name to requirements.
// Groups are created on first append; no empty group exists unless a caller
// appends to it. Once AssignLabels runs the mapping is frozen.
type Groups struct {
	order  []string
	index  map[string]int
	groups []*Group
	frozen bool
}

// NewGroups returns an empty mapping.
func NewGroups() *Groups {
	return &Groups{
		index: make(map[string]int),
	}
}

// Append inserts the group if absent, then appends req to it.
func (g *Groups) Append(name string, req *Requirement) error {
	if g.frozen {
		return ErrFrozen
	}
	if req == nil {
		return fmt.Errorf("nil requirement for group %q", name)
	}

	i, ok := g.index[name]
	if !ok {
		i = len(g.groups)
		g.index[name] = i
		g.order = append(g.order, name)
		g.groups = append(g.groups, &Group{Name: name})
	}
	g.groups[i].Requirements = append(g.groups[i].Requirements, req)
	return nil
}

// Names returns group names in first-encounter order.
func (g *Groups) Names() []string {
	names := make([]string, len(g.order))
	copy(names, g.order)
	return names
}

// Get returns the requirements of a group and whether it exists.
func (g *Groups) Get(name string) ([]*Requirement, bool) {
	i, ok := g.index[name]
	if !ok {
		return nil, false
	}
	return g.groups[i].Requirements, true
}

// Groups returns the groups in first-encounter order.
func (g *Groups) Groups() []*Group {
	out := make([]*Group, len(g.groups))
	copy(out, g.groups)
	return out
}

// Len returns the number of groups.
func (g *Groups) Len() int {
	return len(g.groups)
}

// Count returns the total number of requirements across all groups.
func (g *Groups) Count() int {
	n := 0
	for _, grp := range g.groups {
		n += len(grp.Requirements)
	}
	return n
}

// All returns every requirement, group by group, in append order.
func (g *Groups) All() []*Requirement {
	all := make([]*Requirement, 0, g.Count())
	for _, grp := range g.groups {
		all = append(all, grp.Requirements...)
	}
	return all
}

// Frozen reports whether labels have been assigned.
func (g *Groups) Frozen() bool {
	return g.frozen
}

// AssignLabels labels every requirement F{group}.{item}, both 1-based, and
// freezes the mapping. Calling it again is a no-op.
func (g *Groups) AssignLabels() {
	if g.frozen {
		return
	}
	for gi, grp := range g.groups {
		for ri, req := range grp.Requirements {
			req.Label = fmt.Sprintf("F%d.%d", gi+1, ri+1)
		}
	}
	g.frozen = true
}

// MarshalJSON encodes the mapping as an ordered list of groups.
func (g *Groups) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.listForEncoding())
}

// MarshalYAML encodes the mapping as an ordered list of groups.
func (g *Groups) MarshalYAML() (interface{}, error) {
	return g.listForEncoding(), nil
}

// UnmarshalYAML restores a mapping from its list form. Labels are kept as
// decoded and the result is frozen when every requirement carries one.
func (g *Groups) UnmarshalYAML(node *yaml.Node) error {
	var list []*Group
	if err := node.Decode(&list); err != nil {
		return err
	}
	return g.restore(list)
}

// UnmarshalJSON restores a mapping from its list form.
func (g *Groups) UnmarshalJSON(data []byte) error {
	var list []*Group
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	return g.restore(list)
}

func (g *Groups) restore(list []*Group) error {
	*g = *NewGroups()
	labeled := true
	for _, grp := range list {
		for _, req := range grp.Requirements {
			if req.Design == nil {
				req.Design = []string{}
			}
			if req.Issues == nil {
				req.Issues = []string{}
			}
			if req.Label == "" {
				labeled = false
			}
			if err := g.Append(grp.Name, req); err != nil {
				return err
			}
		}
	}
	g.frozen = labeled && len(g.groups) > 0
	return nil
}

func (g *Groups) listForEncoding() []*Group {
	if len(g.groups) == 0 {
		return []*Group{}
	}
	return g.groups
}
