package compose

import (
	"fmt"
	"strconv"
	"strings"
)

// Identity is the join key that decides "same logical node" across tree
// versions. It is a path of segments rooted at the tree root; each
// segment encodes the node's kind and type plus either its explicit
// key ("#key") or its positional index among same-kind-and-type
// siblings ("@index").
//
// Because an identity embeds its ancestor path, replacing any ancestor
// replaces the whole subtree's identities, and with them their state
// and entities. Positional fallback means inserting or removing an
// unkeyed sibling at the front shifts every later unkeyed sibling onto
// a new identity; callers who need stability across reordering must
// supply keys.
type Identity string

// Child resolves the identity of a child node under parent. index is
// the node's position among siblings of the same kind and type and is
// only encoded when key is nil.
func Child(parent Identity, kind NodeKind, typ string, key any, index int) Identity {
	var sb strings.Builder
	sb.WriteString(string(parent))
	sb.WriteByte('/')
	sb.WriteString(kind.String())
	if typ != "" {
		sb.WriteByte(':')
		sb.WriteString(typ)
	}
	if key != nil {
		sb.WriteByte('#')
		sb.WriteString(keyToken(key))
	} else {
		sb.WriteByte('@')
		sb.WriteString(strconv.Itoa(index))
	}
	return Identity(sb.String())
}

// keyToken renders a key unambiguously: the dynamic type is included so
// int(1) and string "1" resolve to different identities.
func keyToken(key any) string {
	return fmt.Sprintf("%T=%v", key, key)
}

func (id Identity) String() string {
	return string(id)
}

// ParentOf returns the identity of id's parent, or "" for a root.
func (id Identity) ParentOf() Identity {
	i := strings.LastIndexByte(string(id), '/')
	if i <= 0 {
		return ""
	}
	return id[:i]
}
