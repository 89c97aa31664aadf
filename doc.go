/*
Package arbor is an analysis engine for decision models used in health-economic and
cost-effectiveness work.

A model is a directed graph of decision, chance, terminal and Markov nodes. Branches
carry probabilities, costs and effectiveness values that are either literal numbers
or references to named variables. arbor evaluates a model by backward induction
(rollback), simulates Markov cohorts over a fixed number of cycles, and runs one-way
sensitivity analysis that produces tornado diagrams.

# Concept

The graph is the editor wire format: nodes plus an edge list whose sourceHandle names
the branch an edge leaves from. The engine resolves edges into branch targets on a
private copy, picks the root (the node nothing points to) and dispatches to the
rollback engine or to the cohort simulator depending on the root kind. Analysis is
pure: the same model and variables always produce the same result.

# Key Features

  - Permissive by default: unresolved references evaluate to 0 and chance
    probabilities are normalised, so partially built models can still be analysed.
  - Strict validation on demand (WithStrictValidation, package schema).
  - Bounded recursion: cycles and overly deep trees fail fast instead of overflowing.
  - Pluggable model libraries (Loam repositories, plain files, in-memory) and result
    caches (in-memory, Redis).
  - Lifecycle hooks for metrics and structured logging.

# Usage

	eng := arbor.New()

	model, err := eng.ParseModel(raw)
	if err != nil {
		log.Fatal(err)
	}

	out, err := eng.Rollback(ctx, model.Graph, model.Variables)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("strategy=%s cost=%.2f effectiveness=%.2f\n", out.Strategy, out.Cost, out.Effectiveness)

Models can also be assembled in code with package dsl.
*/
package arbor
