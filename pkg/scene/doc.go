// Package scene defines the scene-object collections that device generators
// populate. A collection is an ordered, named tree of primitives and
// sub-collections, each carrying its own visibility flag. Invisible members
// stay in the tree; they are only skipped when the collection is flattened.
package scene
