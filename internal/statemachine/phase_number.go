package statemachine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParsePhaseNumber classifies a phase-number string per the policy in
// spec §4.B: an all-digit string is an integer phase, bounds-checked
// against totalPhases; a string containing a dot is a remediation phase and
// bypasses the bounds check; anything else is rejected with an
// operator-friendly message.
func ParsePhaseNumber(s string, totalPhases int) (isInteger bool, n int, err error) {
	if isAllDigits(s) {
		v, convErr := strconv.Atoi(s)
		if convErr != nil || v < 1 || v > totalPhases {
			return false, 0, fmt.Errorf(
				"phase %s does not exist (total phases: %d).\n\nValid phases: 1-%d\nRemediation phases (e.g., 1.5, 2.5) are created dynamically.",
				s, totalPhases, totalPhases,
			)
		}
		return true, v, nil
	}

	if isDecimalRemediation(s) {
		return false, 0, nil
	}

	return false, 0, fmt.Errorf(
		"invalid phase number %q: use an integer (1-%d) or a decimal remediation phase such as %d.5",
		s, totalPhases, totalPhases,
	)
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDecimalRemediation(s string) bool {
	parts := strings.SplitN(s, ".", 2)
	if len(parts) != 2 {
		return false
	}
	return isAllDigits(parts[0]) && isAllDigits(parts[1])
}
