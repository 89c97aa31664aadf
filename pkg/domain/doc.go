/*
Package domain contains the core models of the arbor analysis engine.

It defines the decision graph (Nodes, Branches, Edges), the Markov cohort payload, the
literal-or-reference Scalar used by every numeric field, and the analysis results. This
package is kept pure and free of I/O, following Hexagonal Architecture principles.

# Key Entities

  - Node: a point in the graph carrying one Payload (Decision, Chance, Terminal or Markov).
  - Branch: an outgoing option of a tree node, with probability, cost and effectiveness.
  - Scalar: either a numeric literal or a reference to a named variable.
  - Outcome: expected cost and effectiveness, plus the chosen strategy at a decision.
  - TornadoResult: the ranked output of a one-way sensitivity analysis.
*/
package domain
