// Package schema provides strict structural validation of decision models.
//
// The analysis engine is permissive: unresolved references evaluate to 0 and
// malformed probabilities are simply normalised away. Validate reports the
// problems such a model would silently hide, without changing how the engine
// evaluates it.
//
// Basic usage:
//
//	if err := schema.Validate(graph, variables); err != nil {
//	    for _, e := range schema.ValidationErrors(err) {
//	        fmt.Println(e)
//	    }
//	}
//
// Every failure matches domain.ErrInvalidModel with errors.Is.
package schema
