/*
Package domain contains the core narrative models of the Plotforge engine.

It defines story nodes, the choices that link them, the mutable story state
owned by a session, and the scenes the engine hands back to callers. The
package is kept pure and free of I/O, persistence and provider concerns.

# Key Entities

  - Node: a unit of narrative content plus its outgoing choices. Either static
    (authored content) or generative (content produced by a Generator).
  - Choice: a player-facing option linking to a next node, with optional
    numeric variable effects and a visibility condition.
  - Session: the single cursor into the graph plus its StoryState.
  - Scene: what the engine returns for rendering (content + choices).
*/
package domain
