package seedwork

// BusinessRule is a predicate evaluated at mutation time. A rule is built
// with the values it compares and reports whether they violate an invariant.
type BusinessRule interface {
	IsBroken() bool
	Message() string
}

// CheckRule returns a *BusinessRuleValidationError when rule is broken.
func CheckRule(rule BusinessRule) error {
	if rule.IsBroken() {
		return &BusinessRuleValidationError{Rule: rule, Message: rule.Message()}
	}
	return nil
}

// CheckRules evaluates rules in order and stops at the first broken one.
func CheckRules(rules ...BusinessRule) error {
	for _, r := range rules {
		if err := CheckRule(r); err != nil {
			return err
		}
	}
	return nil
}
