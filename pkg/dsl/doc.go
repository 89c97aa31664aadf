/*
Package dsl provides a Go DSL for programmatically constructing arbor decision models.

It allows developers to define decision trees and Markov cohort models using a fluent
builder instead of the editor's JSON wire format. This is particularly useful for
generated models, unit tests and IDE autocompletion.

Numeric fields accept a float64 or int (a literal) or a string (a variable reference).

Example usage:

	b := dsl.New()

	b.Decision("root").
		Branch("treat", "Treat", dsl.To("outcome")).
		Branch("wait", "Wait", dsl.Cost(0), dsl.Eff(3))

	b.Chance("outcome").
		Branch("cured", "Cured", dsl.Prob("p_cure"), dsl.To("cured")).
		Branch("sick", "Sick", dsl.Prob(0.3), dsl.To("sick"))

	b.Terminal("cured").Outcome(1000, 10)
	b.Terminal("sick").Outcome(5000, 2)

	graph, err := b.Build()
*/
package dsl
