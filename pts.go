package pta

import (
	"strings"

	"golang.org/x/tools/container/intsets"
)

// PointsToSet is a set of context-qualified abstract objects. Sets of one
// analysis run share the object numbering of their element manager.
//
// Points-to sets only grow: there is no removal operation.
type PointsToSet struct {
	m   *csManager
	set intsets.Sparse
}

func (m *csManager) newPointsToSet() *PointsToSet {
	return &PointsToSet{m: m}
}

// Add inserts o and reports whether it was absent.
func (s *PointsToSet) Add(o *CSObj) bool { return s.set.Insert(o.id) }

// AddAll inserts all objects of other and reports whether s changed.
func (s *PointsToSet) AddAll(other *PointsToSet) bool { return s.set.UnionWith(&other.set) }

func (s *PointsToSet) Contains(o *CSObj) bool { return s.set.Has(o.id) }

func (s *PointsToSet) Len() int { return s.set.Len() }

func (s *PointsToSet) IsEmpty() bool { return s.set.IsEmpty() }

// Objects returns the objects of s in ascending order of their identifiers,
// i.e. in the order they were first created.
func (s *PointsToSet) Objects() []*CSObj {
	ids := s.set.AppendTo(nil)
	res := make([]*CSObj, len(ids))
	for i, id := range ids {
		res[i] = s.m.objList[id]
	}
	return res
}

// Diff returns a new set with the objects of s that are not in other.
func (s *PointsToSet) Diff(other *PointsToSet) *PointsToSet {
	res := s.m.newPointsToSet()
	res.set.Difference(&s.set, &other.set)
	return res
}

// Partition splits s into its ordinary objects and its taint objects.
func (s *PointsToSet) Partition() (objs, taints []*CSObj) {
	for _, o := range s.Objects() {
		if o.Obj.IsTaint() {
			taints = append(taints, o)
		} else {
			objs = append(objs, o)
		}
	}
	return
}

func (s *PointsToSet) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, o := range s.Objects() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(o.String())
	}
	sb.WriteByte('}')
	return sb.String()
}

func (m *csManager) singleton(o *CSObj) *PointsToSet {
	s := m.newPointsToSet()
	s.Add(o)
	return s
}
