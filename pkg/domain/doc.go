/*
Package domain contains the core domain models of the panel tree.

It defines the values that flow between the handler registry, the stack
resolver and the update propagator. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Type / Expression: opaque structural types and typed expressions, owned by
    external collaborators (see Oracle, Refiner and Codec).
  - Frame: an ordered, immutable set of named variable bindings.
  - ConfigNode: one node of the composition tree ("child panel config").
  - Path / Visibility: addressing of nested nodes and selection focus.
  - Document: a persisted root node with a version stamp.
  - LifecycleHooks: callbacks for observability of resolutions and transitions.
*/
package domain
