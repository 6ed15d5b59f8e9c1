package optimizer

import "fmt"

// Constraint names surfaced by InfeasibleError.
const (
	ConstraintBudget        = "budget"
	ConstraintPositionQuota = "position quota"
	ConstraintClubCap       = "club cap"
)

// ValidationError rejects malformed input before any computation runs.
type ValidationError struct {
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// InfeasibleError reports that no legal squad exists under the given
// constraints. Constraint names the first violated constraint found by the
// repair loop.
type InfeasibleError struct {
	Constraint string
	Detail     string
}

func (e *InfeasibleError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("no feasible squad: %s constraint violated", e.Constraint)
	}
	return fmt.Sprintf("no feasible squad: %s constraint violated (%s)", e.Constraint, e.Detail)
}
