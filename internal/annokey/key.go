// Package annokey implements the identifier and name algebra for corpusgraph:
// qualified annotation keys, the reserved ANNIS namespace, and node-name
// parsing/composition.
//
// An annotation key is a (namespace, name) pair. The namespace may be empty,
// in which case the key's wire form is just the name. A non-empty namespace
// is rendered "ns::name", mirroring the qualified-name convention used by the
// annotation graph library this module's data model is drawn from.
//
// Node names are slash-delimited corpus-tree paths with an optional fragment
// after '#', e.g. "rootCorpus/subcorpus/doc1#tok3".
package annokey

import "strings"

// AnnisNS is the reserved namespace holding system annotation keys
// (tok, doc, node_name, node_type, layer, time, tok-whitespace-before/after).
const AnnisNS = "annis"

// Reserved ANNIS-namespace annotation names.
const (
	Tok                 = "tok"
	Doc                 = "doc"
	NodeName            = "node_name"
	NodeTypeName        = "node_type"
	Layer               = "layer"
	Time                = "time"
	TokWhitespaceBefore = "tok-whitespace-before"
	TokWhitespaceAfter  = "tok-whitespace-after"
)

// NodeType is the closed set of values legal for the ANNIS::node_type key.
type NodeType string

const (
	NodeTypeCorpus     NodeType = "corpus"
	NodeTypeNode       NodeType = "node"
	NodeTypeDatasource NodeType = "datasource"
	NodeTypeFile       NodeType = "file"
)

// Key identifies one annotation slot by (namespace, name). Keys compare by
// value, so a Key is safe to use as a map key.
type Key struct {
	Namespace string
	Name      string
}

// NodeNameKey is the reserved key carrying a node's globally unique name.
var NodeNameKey = Key{Namespace: AnnisNS, Name: NodeName}

// NodeTypeKey is the reserved key carrying a node's type tag.
var NodeTypeKey = Key{Namespace: AnnisNS, Name: NodeTypeName}

// TokKey is the reserved key carrying a token's surface text.
var TokKey = Key{Namespace: AnnisNS, Name: Tok}

// New builds a Key, treating an empty namespace as the default namespace.
func New(namespace, name string) Key {
	return Key{Namespace: namespace, Name: name}
}

// Annis builds a Key in the reserved ANNIS namespace.
func Annis(name string) Key {
	return Key{Namespace: AnnisNS, Name: name}
}

// String renders the key's wire form: "ns::name", or bare "name" when the
// namespace is empty.
func (k Key) String() string {
	if k.Namespace == "" {
		return k.Name
	}
	return k.Namespace + "::" + k.Name
}

// ParseQName parses a wire-form qualified name ("ns::name" or "name") into a
// Key. A name containing no "::" separator yields a Key with an empty
// namespace.
func ParseQName(qname string) Key {
	if idx := strings.Index(qname, "::"); idx >= 0 {
		return Key{Namespace: qname[:idx], Name: qname[idx+2:]}
	}
	return Key{Name: qname}
}

// SplitNodeName splits a node name into its slash-delimited path segments and
// optional fragment (the part after '#', if any). The fragment is returned
// without the leading '#'; ok is false if there was no fragment.
func SplitNodeName(nodeName string) (path []string, fragment string, ok bool) {
	base := nodeName
	if idx := strings.IndexByte(nodeName, '#'); idx >= 0 {
		base = nodeName[:idx]
		fragment = nodeName[idx+1:]
		ok = true
	}
	if base == "" {
		return nil, fragment, ok
	}
	return strings.Split(base, "/"), fragment, ok
}

// JoinNodeName composes a node name from path segments and an optional
// fragment. An empty fragment omits the '#' separator.
func JoinNodeName(path []string, fragment string) string {
	base := strings.Join(path, "/")
	if fragment == "" {
		return base
	}
	return base + "#" + fragment
}

// DocumentName extracts the document-identifying segment of a node name: the
// last path segment before any fragment. This is the name used to group
// nodes imported from the same source document, e.g. by the merge
// manipulator when keying per-document alignment state.
func DocumentName(nodeName string) string {
	path, _, _ := SplitNodeName(nodeName)
	if len(path) == 0 {
		return ""
	}
	return path[len(path)-1]
}

// ParentPath returns the node name of the corpus node that is the immediate
// parent of nodeName in the corpus tree, i.e. all but the last path segment.
// Returns "" if nodeName has no parent (it is the corpus root).
func ParentPath(nodeName string) string {
	path, _, _ := SplitNodeName(nodeName)
	if len(path) <= 1 {
		return ""
	}
	return strings.Join(path[:len(path)-1], "/")
}

// ComponentType is the closed set of edge-container kinds.
// Every edge belongs to exactly one Component, and a Component's Type fixes
// the structural rules (forest, acyclic chain, ...) that apply to its edges.
type ComponentType string

const (
	Coverage  ComponentType = "Coverage"
	Dominance ComponentType = "Dominance"
	Pointing  ComponentType = "Pointing"
	Ordering  ComponentType = "Ordering"
	PartOf    ComponentType = "PartOf"
)

// Component names one edge container by (type, layer, name). A graph may
// hold many Components of the same Type, distinguished by Layer and Name;
// the empty Name identifies a type's default, unnamed component.
type Component struct {
	Type  ComponentType
	Layer string
	Name  string
}

// String renders a Component's wire form "Type/layer/name", matching the
// "component(type, layer, name)" notation used for addressing components in
// workflow configuration (e.g. the merge manipulator's skip_components list).
func (c Component) String() string {
	return string(c.Type) + "/" + c.Layer + "/" + c.Name
}

// ParseComponent parses the "Type/layer/name" wire form produced by String.
// Returns ok=false if s does not have exactly two '/' separators.
func ParseComponent(s string) (c Component, ok bool) {
	first := strings.IndexByte(s, '/')
	if first < 0 {
		return Component{}, false
	}
	rest := s[first+1:]
	second := strings.IndexByte(rest, '/')
	if second < 0 {
		return Component{}, false
	}
	return Component{
		Type:  ComponentType(s[:first]),
		Layer: rest[:second],
		Name:  rest[second+1:],
	}, true
}
