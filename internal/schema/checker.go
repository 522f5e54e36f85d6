package schema

// Checker evaluates field constraints in a single pass and collects every
// violation instead of stopping at the first one.
type Checker struct {
	violations []Violation
	advisories []Violation
	// present is nil for typed values, in which case presence is inferred
	// from the value itself.
	present map[string]struct{}
	failed  map[string]struct{}
}

// NewChecker returns a checker for an already typed value.
func NewChecker() *Checker {
	return &Checker{failed: make(map[string]struct{})}
}

// Field checks value against every constraint. An absent value only reports
// the Required constraint; the remaining constraints are skipped. Fields that
// already failed to decode are not checked again.
func (c *Checker) Field(path string, value any, constraints ...Constraint) *Checker {
	c.violations = c.evaluate(c.violations, path, value, constraints)
	return c
}

// Advise evaluates soft constraints. Their findings are reported by
// Advisories and never make Err non-nil.
func (c *Checker) Advise(path string, value any, constraints ...Constraint) *Checker {
	c.advisories = c.evaluate(c.advisories, path, value, constraints)
	return c
}

// Add records a violation produced outside the constraint set.
func (c *Checker) Add(v Violation) *Checker {
	c.violations = append(c.violations, v)
	c.failed[v.Field] = struct{}{}
	return c
}

// Present reports whether the decoded payload carried path. Typed values
// report every path as present.
func (c *Checker) Present(path string) bool {
	if c.present == nil {
		return true
	}
	_, ok := c.present[path]
	return ok
}

func (c *Checker) evaluate(dst []Violation, path string, value any, constraints []Constraint) []Violation {
	if _, ok := c.failed[path]; ok {
		return dst
	}

	if !c.Present(path) || isAbsent(value) {
		for _, cons := range constraints {
			if cons.required {
				return append(dst, Violation{Field: path, Rule: RuleRequired, Message: "is required"})
			}
		}
		return dst
	}

	for _, cons := range constraints {
		if cons.check == nil {
			continue
		}
		if msg, ok := cons.check(value); !ok {
			dst = append(dst, Violation{Field: path, Rule: cons.rule, Message: msg})
		}
	}
	return dst
}

// Err returns a *ValidationError holding all violations, or nil.
func (c *Checker) Err() error {
	if len(c.violations) == 0 {
		return nil
	}
	out := make([]Violation, len(c.violations))
	copy(out, c.violations)
	return &ValidationError{Violations: out}
}

// Advisories returns the soft findings collected by Advise.
func (c *Checker) Advisories() []Violation {
	if len(c.advisories) == 0 {
		return nil
	}
	out := make([]Violation, len(c.advisories))
	copy(out, c.advisories)
	return out
}
