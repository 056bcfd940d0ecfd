// Copyright (c) 2019 Cisco and/or its affiliates.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at:
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package keypath implements typed hierarchical key paths used to address
// nodes of configuration and operational data trees.
package keypath

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Key is the tuple of key values identifying one list entry.
type Key []string

// String returns the key in the "{k1 k2}" form.
func (k Key) String() string {
	vals := make([]string, 0, len(k))
	for _, v := range k {
		vals = append(vals, quoteKeyValue(v))
	}
	return "{" + strings.Join(vals, " ") + "}"
}

// Element is a single segment of a key path: either a plain tag or a key tuple.
type Element struct {
	Tag string
	Key Key
}

// Tag returns a tag element.
func Tag(tag string) Element {
	return Element{Tag: tag}
}

// Keys returns a key element with the given key values.
func Keys(values ...string) Element {
	key := make(Key, len(values))
	copy(key, values)
	return Element{Key: key}
}

// IsKey returns true if the element carries key values.
func (e Element) IsKey() bool {
	return e.Key != nil
}

// String returns either the tag or the key in the "{...}" form.
func (e Element) String() string {
	if e.IsKey() {
		return e.Key.String()
	}
	return e.Tag
}

// Equal compares two elements.
func (e Element) Equal(other Element) bool {
	if e.IsKey() != other.IsKey() {
		return false
	}
	if !e.IsKey() {
		return e.Tag == other.Tag
	}
	if len(e.Key) != len(other.Key) {
		return false
	}
	for i := range e.Key {
		if e.Key[i] != other.Key[i] {
			return false
		}
	}
	return true
}

// KeyPath identifies a node in a hierarchical data tree.
// Elements are stored leaf-first: index 0 is the node itself and the last
// index is the top-level node, e.g. the path
// /resource-manager/id-pool{pool-1}/allocation{a1}/request is stored as
// [request, {a1}, allocation, {pool-1}, id-pool, resource-manager].
type KeyPath []Element

// New builds a key path from root-first elements.
func New(rootFirst ...Element) KeyPath {
	kp := make(KeyPath, len(rootFirst))
	for i, elem := range rootFirst {
		kp[len(rootFirst)-1-i] = elem
	}
	return kp
}

// Len returns the number of elements.
func (kp KeyPath) Len() int {
	return len(kp)
}

// At returns the element at the leaf-first index <i>.
func (kp KeyPath) At(i int) (Element, bool) {
	if i < 0 || i >= len(kp) {
		return Element{}, false
	}
	return kp[i], true
}

// Tag returns the tag at the leaf-first index <i>.
// The second return value is false if the index is out of range or the element
// is a key.
func (kp KeyPath) Tag(i int) (string, bool) {
	elem, ok := kp.At(i)
	if !ok || elem.IsKey() {
		return "", false
	}
	return elem.Tag, true
}

// Key returns the key tuple at the leaf-first index <i>.
func (kp KeyPath) Key(i int) (Key, bool) {
	elem, ok := kp.At(i)
	if !ok || !elem.IsKey() {
		return nil, false
	}
	return elem.Key, true
}

// FirstKeyValue returns the first value of the key tuple at the leaf-first index <i>.
func (kp KeyPath) FirstKeyValue(i int) (string, bool) {
	key, ok := kp.Key(i)
	if !ok || len(key) == 0 {
		return "", false
	}
	return key[0], true
}

// IsTag returns true if the element at the leaf-first index <i> is the given tag.
func (kp KeyPath) IsTag(i int, tag string) bool {
	t, ok := kp.Tag(i)
	return ok && t == tag
}

// Up returns the ancestor <n> levels above the node.
// Returns nil if the path is not deep enough.
func (kp KeyPath) Up(n int) KeyPath {
	if n < 0 || n > len(kp) {
		return nil
	}
	return kp[n:]
}

// Parent returns the path of the parent node (nil for the root).
func (kp KeyPath) Parent() KeyPath {
	if len(kp) == 0 {
		return nil
	}
	return kp[1:]
}

// Append returns a descendant path built by appending root-first elements.
func (kp KeyPath) Append(elems ...Element) KeyPath {
	child := make(KeyPath, 0, len(kp)+len(elems))
	for i := len(elems) - 1; i >= 0; i-- {
		child = append(child, elems[i])
	}
	return append(child, kp...)
}

// Child returns the path of a child node with the given tags.
func (kp KeyPath) Child(tags ...string) KeyPath {
	elems := make([]Element, 0, len(tags))
	for _, tag := range tags {
		elems = append(elems, Tag(tag))
	}
	return kp.Append(elems...)
}

// Entry returns the path of a list entry <tag>{keys} under the node.
func (kp KeyPath) Entry(tag string, keys ...string) KeyPath {
	return kp.Append(Tag(tag), Keys(keys...))
}

// RootFirst returns the elements ordered from the top-level node to the leaf.
func (kp KeyPath) RootFirst() []Element {
	elems := make([]Element, len(kp))
	for i, elem := range kp {
		elems[len(kp)-1-i] = elem
	}
	return elems
}

// Equal compares two key paths.
func (kp KeyPath) Equal(other KeyPath) bool {
	if len(kp) != len(other) {
		return false
	}
	for i := range kp {
		if !kp[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// IsAncestorOf returns true if the path is a proper ancestor of <other>.
func (kp KeyPath) IsAncestorOf(other KeyPath) bool {
	if len(kp) >= len(other) {
		return false
	}
	return kp.Equal(other[len(other)-len(kp):])
}

// Compare orders key paths depth-first in pre-order: an ancestor sorts before
// its descendants and siblings are ordered by their string representation.
func Compare(a, b KeyPath) int {
	ra, rb := a.RootFirst(), b.RootFirst()
	for i := 0; i < len(ra) && i < len(rb); i++ {
		if ra[i].Equal(rb[i]) {
			continue
		}
		if sa, sb := ra[i].String(), rb[i].String(); sa < sb {
			return -1
		} else if sa > sb {
			return 1
		}
		// tag "x" vs key {x}
		if !ra[i].IsKey() {
			return -1
		}
		return 1
	}
	switch {
	case len(ra) < len(rb):
		return -1
	case len(ra) > len(rb):
		return 1
	}
	return 0
}

// Schema returns the path with all key elements removed, in the string form,
// e.g. /resource-manager/id-pool/allocation/request.
func (kp KeyPath) Schema() string {
	var sb strings.Builder
	for _, elem := range kp.RootFirst() {
		if elem.IsKey() {
			continue
		}
		sb.WriteString("/")
		sb.WriteString(elem.Tag)
	}
	if sb.Len() == 0 {
		return "/"
	}
	return sb.String()
}

// String returns the root-first textual form of the path.
func (kp KeyPath) String() string {
	if len(kp) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, elem := range kp.RootFirst() {
		if elem.IsKey() {
			sb.WriteString(elem.Key.String())
			continue
		}
		sb.WriteString("/")
		sb.WriteString(elem.Tag)
	}
	return sb.String()
}

// Parse parses the root-first textual form of a path, e.g.
// /resource-manager/id-pool{pool-1}/allocation{"a b"}/request.
// Key values are separated by spaces; values containing spaces, braces or
// quotes must be double-quoted.
func Parse(path string) (KeyPath, error) {
	if path == "" || path[0] != '/' {
		return nil, errors.Errorf("key path %q must start with '/'", path)
	}
	var (
		rootFirst []Element
		i         = 0
	)
	for i < len(path) {
		switch path[i] {
		case '/':
			i++
			start := i
			for i < len(path) && path[i] != '/' && path[i] != '{' {
				i++
			}
			if i == start {
				if i == len(path) && len(rootFirst) == 0 {
					// "/" denotes the root
					return KeyPath{}, nil
				}
				return nil, errors.Errorf("empty tag at offset %d in key path %q", start, path)
			}
			rootFirst = append(rootFirst, Tag(path[start:i]))
		case '{':
			if len(rootFirst) == 0 || rootFirst[len(rootFirst)-1].IsKey() {
				return nil, errors.Errorf("unexpected key at offset %d in key path %q", i, path)
			}
			key, next, err := parseKey(path, i+1)
			if err != nil {
				return nil, err
			}
			rootFirst = append(rootFirst, Element{Key: key})
			i = next
		default:
			return nil, errors.Errorf("unexpected character %q at offset %d in key path %q", path[i], i, path)
		}
	}
	return New(rootFirst...), nil
}

// MustParse is like Parse but panics on error.
func MustParse(path string) KeyPath {
	kp, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return kp
}

// parseKey parses key values starting right after '{' and returns the offset
// right after the closing '}'.
func parseKey(path string, i int) (Key, int, error) {
	key := Key{}
	for i < len(path) {
		switch c := path[i]; {
		case c == '}':
			return key, i + 1, nil
		case c == ' ':
			i++
		case c == '"':
			end := i + 1
			for end < len(path) && path[end] != '"' {
				if path[end] == '\\' {
					end++
				}
				end++
			}
			if end >= len(path) {
				return nil, 0, errors.Errorf("unterminated quoted key value in key path %q", path)
			}
			val, err := strconv.Unquote(path[i : end+1])
			if err != nil {
				return nil, 0, errors.Wrapf(err, "invalid quoted key value in key path %q", path)
			}
			key = append(key, val)
			i = end + 1
		default:
			start := i
			for i < len(path) && path[i] != ' ' && path[i] != '}' {
				i++
			}
			key = append(key, path[start:i])
		}
	}
	return nil, 0, errors.Errorf("unterminated key in key path %q", path)
}

func quoteKeyValue(v string) string {
	if v == "" || strings.ContainsAny(v, " {}\"\\") {
		return strconv.Quote(v)
	}
	return v
}
