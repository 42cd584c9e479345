/*
Package ports defines the driven ports (interfaces) for the Plotforge engine.

These interfaces decouple the narrative core from external implementations,
allowing the engine to work with various storage backends, graph sources and
text-generation providers.

# Key Interfaces

  - ContentStore: key-value persistence for session, history log and exports.
  - GraphSource: supplies the authored node graph (memory, JSON files, Loam).
  - Generator: turns a prompt into narrative text (OpenAI-compatible, DashScope).
  - DistributedLocker: distributed locking for concurrent session access.
*/
package ports
