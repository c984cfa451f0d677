package types

// Index maps ids to the nodes of a normalized tree so that id-based parent
// references can be resolved without object back-pointers
type Index struct {
	suites map[string]*SuiteNode
	tests  map[string]*TestNode
	order  []*TestNode
}

// NewIndex walks the tree rooted at root
func NewIndex(root *SuiteNode) *Index {
	idx := &Index{
		suites: make(map[string]*SuiteNode),
		tests:  make(map[string]*TestNode),
	}
	if root != nil {
		idx.add(root)
	}
	return idx
}

func (idx *Index) add(s *SuiteNode) {
	idx.suites[s.UUID] = s
	for _, group := range [][]*TestNode{s.BeforeHooks, s.Tests, s.AfterHooks} {
		for _, t := range group {
			idx.tests[t.UUID] = t
			idx.order = append(idx.order, t)
		}
	}
	for _, child := range s.Suites {
		idx.add(child)
	}
}

// Suite returns the suite with the given id
func (idx *Index) Suite(id string) (*SuiteNode, bool) {
	s, ok := idx.suites[id]
	return s, ok
}

// Test returns the test or hook with the given id
func (idx *Index) Test(id string) (*TestNode, bool) {
	t, ok := idx.tests[id]
	return t, ok
}

// Parent resolves the suite that owns t
func (idx *Index) Parent(t *TestNode) (*SuiteNode, bool) {
	if t == nil {
		return nil, false
	}
	return idx.Suite(t.ParentUUID)
}

// Nodes returns every test and hook in tree order
func (idx *Index) Nodes() []*TestNode {
	return idx.order
}

// Failed returns the failed tests and hooks in tree order
func (idx *Index) Failed() []*TestNode {
	var failed []*TestNode
	for _, t := range idx.order {
		if t.Fail {
			failed = append(failed, t)
		}
	}
	return failed
}
