/*
Package ports defines the driven ports (interfaces) of paneltree.

These interfaces decouple document management from storage backends and
from the coordination layer used when several replicas share a store.

# Key Interfaces

  - DocumentStore: persists configuration trees (memory, file, Redis).
  - DistributedLocker: serializes access to a document across replicas.
*/
package ports
