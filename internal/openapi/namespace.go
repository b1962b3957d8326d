package openapi

import "strings"

// OperationRef is a lightweight pointer back into ParsedSpec.Operations,
// stored at a namespace tree's terminal nodes.
type OperationRef struct {
	OperationID string
	Method      Method
	Path        string
	Index       int
}

// NamespaceTree is a prefix tree over operations' dot-separated
// normalized IDs, letting callers enumerate or look up operations by
// namespace segment (e.g. "stripe.customers").
type NamespaceTree struct {
	children  map[string]*NamespaceTree
	operation *OperationRef
}

// NewNamespaceTree returns an empty tree.
func NewNamespaceTree() *NamespaceTree {
	return &NamespaceTree{children: make(map[string]*NamespaceTree)}
}

// BuildNamespaceTree indexes every operation by its NormalizedID.
// Colliding normalized IDs resolve last-write-wins, in the order
// operations appear in ops.
func BuildNamespaceTree(ops []Operation) *NamespaceTree {
	tree := NewNamespaceTree()
	for i, op := range ops {
		tree.insert(op.NormalizedID, OperationRef{
			OperationID: op.OperationID,
			Method:      op.Method,
			Path:        op.Path,
			Index:       i,
		})
	}
	return tree
}

func (t *NamespaceTree) insert(normalizedID string, ref OperationRef) {
	t.insertParts(strings.Split(normalizedID, "."), ref)
}

func (t *NamespaceTree) insertParts(parts []string, ref OperationRef) {
	if len(parts) == 0 {
		r := ref
		t.operation = &r
		return
	}

	head, rest := parts[0], parts[1:]
	child, ok := t.children[head]
	if !ok {
		child = NewNamespaceTree()
		t.children[head] = child
	}
	child.insertParts(rest, ref)
}

// Lookup returns the operation stored at the exact dot-separated path, if
// any.
func (t *NamespaceTree) Lookup(path string) (OperationRef, bool) {
	return t.lookupParts(splitNonEmpty(path))
}

func (t *NamespaceTree) lookupParts(parts []string) (OperationRef, bool) {
	if len(parts) == 0 {
		if t.operation != nil {
			return *t.operation, true
		}
		return OperationRef{}, false
	}

	child, ok := t.children[parts[0]]
	if !ok {
		return OperationRef{}, false
	}
	return child.lookupParts(parts[1:])
}

// List returns every operation whose normalized ID has prefix, including
// prefix itself if it names an operation directly. An empty prefix lists
// every operation in the tree.
func (t *NamespaceTree) List(prefix string) []OperationRef {
	node := t
	if prefix != "" {
		var ok bool
		node, ok = t.descend(splitNonEmpty(prefix))
		if !ok {
			return nil
		}
	}
	var out []OperationRef
	node.collectAll(&out)
	return out
}

func (t *NamespaceTree) descend(parts []string) (*NamespaceTree, bool) {
	if len(parts) == 0 {
		return t, true
	}
	child, ok := t.children[parts[0]]
	if !ok {
		return nil, false
	}
	return child.descend(parts[1:])
}

func (t *NamespaceTree) collectAll(out *[]OperationRef) {
	if t.operation != nil {
		*out = append(*out, *t.operation)
	}
	for _, child := range t.children {
		child.collectAll(out)
	}
}

// Paths returns every dotted namespace path that resolves to an
// operation.
func (t *NamespaceTree) Paths() []string {
	var out []string
	t.collectPaths(nil, &out)
	return out
}

func (t *NamespaceTree) collectPaths(prefix []string, out *[]string) {
	if t.operation != nil {
		*out = append(*out, strings.Join(prefix, "."))
	}
	for seg, child := range t.children {
		child.collectPaths(append(prefix, seg), out)
	}
}

// ChildrenAt returns the immediate child segment names below prefix.
func (t *NamespaceTree) ChildrenAt(prefix string) []string {
	node := t
	if prefix != "" {
		var ok bool
		node, ok = t.descend(splitNonEmpty(prefix))
		if !ok {
			return nil
		}
	}
	names := make([]string, 0, len(node.children))
	for seg := range node.children {
		names = append(names, seg)
	}
	return names
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ".")
}
