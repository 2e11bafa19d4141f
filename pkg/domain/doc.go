/*
Package domain contains the value model shared by every Sculpt package.

State is an immutable tree built from a closed set of variants. This package
is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Value: the tagged union of Leaf, *Record and *Sequence.
  - Leaf: null, bool, int64, float64 or string.
  - Record: ordered key/value mapping with unique keys.
  - Sequence: ordered list of values.
  - Path: dotted address of a node ("todos.0.done").
  - Change: a path-addressed edit produced by Diff.

Containers expose no mutators. Two snapshots can be compared cheaply with
Same, which is reference identity for containers.
*/
package domain
