package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dotsetlabs/bellwether/internal/baseline"
	"github.com/dotsetlabs/bellwether/internal/bwerrors"
	"github.com/dotsetlabs/bellwether/internal/mcpproto"
	"github.com/dotsetlabs/bellwether/internal/schema"
	"github.com/dotsetlabs/bellwether/internal/scenario"
	"github.com/dotsetlabs/bellwether/internal/scheduler"
)

// buildFingerprint reduces one tool's scenario run to the behavioral
// summary a Baseline compares across runs (§3 Fingerprint).
func buildFingerprint(tool mcpproto.Tool, result scheduler.ToolResult) baseline.Fingerprint {
	schemaDoc, _ := schema.CanonicalizeJSON(tool.InputSchema)
	schemaHash := schema.Hash(schemaDoc)

	assertionSet := map[string]bool{}
	var securityNotes, limitations, errorPatternList []string
	errorCounts := map[string]int{}

	for _, sc := range result.Scenarios {
		for _, a := range sc.Assertions {
			assertionSet[fmt.Sprintf("%s %s", a.Assertion.Path, a.Assertion.Condition)] = true
		}

		if sc.Scenario.Category == scenario.CategorySecurity && !sc.Passed {
			securityNotes = append(securityNotes, fmt.Sprintf("%s: server did not %s malicious input", sc.Scenario.Description, expectedVerb(sc.Scenario.ExpectedBehavior)))
		}

		if sc.Err != nil {
			limitations = append(limitations, fmt.Sprintf("%s: %s", sc.Scenario.Description, sc.Err.Error()))
			var bwErr *bwerrors.Error
			if errors.As(sc.Err, &bwErr) {
				errorCounts[string(bwErr.Code)]++
			} else {
				errorCounts["unclassified"]++
			}
		}
	}

	for code, count := range errorCounts {
		errorPatternList = append(errorPatternList, fmt.Sprintf("%s:%d", code, count))
	}

	return baseline.Fingerprint{
		Name:                  tool.Name,
		Description:           tool.Description,
		SchemaHash:            schemaHash,
		Assertions:            sortedKeys(assertionSet),
		SecurityNotes:         sortStrings(securityNotes),
		Limitations:           sortStrings(limitations),
		LastTestedAt:          timeNow(),
		InputSchemaHashAtTest: schemaHash,
		ErrorPatterns:         sortStrings(errorPatternList),
	}
}

func expectedVerb(b scenario.ExpectedBehavior) string {
	if b == scenario.ExpectedSanitize {
		return "sanitize"
	}
	return "reject"
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
