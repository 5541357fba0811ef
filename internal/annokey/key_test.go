package annokey

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyString(t *testing.T) {
	assert.Equal(t, "tok", Key{Name: "tok"}.String())
	assert.Equal(t, "annis::tok", Key{Namespace: "annis", Name: "tok"}.String())
}

func TestParseQName(t *testing.T) {
	assert.Equal(t, Key{Namespace: "annis", Name: "tok"}, ParseQName("annis::tok"))
	assert.Equal(t, Key{Name: "pos"}, ParseQName("pos"))
	assert.Equal(t, Key{Namespace: "ns", Name: "a::b"}, ParseQName("ns::a::b"))
}

func TestSplitJoinNodeName(t *testing.T) {
	path, frag, ok := SplitNodeName("root/sub/doc1#tok3")
	assert.Equal(t, []string{"root", "sub", "doc1"}, path)
	assert.Equal(t, "tok3", frag)
	assert.True(t, ok)

	assert.Equal(t, "root/sub/doc1#tok3", JoinNodeName(path, frag))

	path2, frag2, ok2 := SplitNodeName("root/sub/doc1")
	assert.Equal(t, []string{"root", "sub", "doc1"}, path2)
	assert.Equal(t, "", frag2)
	assert.False(t, ok2)
	assert.Equal(t, "root/sub/doc1", JoinNodeName(path2, frag2))
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "doc1", DocumentName("root/sub/doc1#tok3"))
	assert.Equal(t, "doc1", DocumentName("root/sub/doc1"))
	assert.Equal(t, "", DocumentName(""))
}

func TestParentPath(t *testing.T) {
	assert.Equal(t, "root/sub", ParentPath("root/sub/doc1"))
	assert.Equal(t, "", ParentPath("root"))
}

func TestComponentStringRoundTrip(t *testing.T) {
	c := Component{Type: Pointing, Layer: "dep", Name: "deprel"}
	assert.Equal(t, "Pointing/dep/deprel", c.String())

	parsed, ok := ParseComponent("Pointing/dep/deprel")
	assert.True(t, ok)
	assert.Equal(t, c, parsed)

	_, ok = ParseComponent("no-slashes-here")
	assert.False(t, ok)

	empty, ok := ParseComponent("Ordering//")
	assert.True(t, ok)
	assert.Equal(t, Component{Type: Ordering}, empty)
}
