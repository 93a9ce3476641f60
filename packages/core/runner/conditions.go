package runner

import (
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/hitdesk/packages/core/env"
	"github.com/abdul-hamid-achik/hitdesk/packages/core/parser"
)

// contextName is the name later requests use to refer to the request at
// index: its @name, or request_<n> counting from one.
func contextName(req *parser.Request, index int) string {
	if req.Name != "" {
		return req.Name
	}
	return fmt.Sprintf("request_%d", index+1)
}

// skipReason reports why req must not run given the results so far, or ""
// when it may run.
func skipReason(req *parser.Request, resolver *env.Resolver, done map[string]*RequestResult) string {
	if req.DependsOn != "" {
		dep, ok := done[req.DependsOn]
		if !ok || dep.Skipped || !dep.Passed {
			return fmt.Sprintf("dependency %q not met", req.DependsOn)
		}
	}
	for _, c := range req.Conditions {
		if !conditionMet(c, resolver, done) {
			return "condition not met: " + c.String()
		}
	}
	return ""
}

// conditionMet compares the referenced status or JSON body value of an
// earlier response with c.Expected. A condition on a request that has not
// produced a response is never met, negated or not.
func conditionMet(c *parser.Condition, resolver *env.Resolver, done map[string]*RequestResult) bool {
	target, ok := done[c.Request]
	if !ok || target.Response == nil {
		return false
	}

	expr := c.Request + ".response.status"
	if c.Field == parser.ConditionBody {
		if !strings.HasPrefix(c.Path, "$.") {
			return c.Negate
		}
		expr = c.Request + ".response.body." + c.Path
	}

	actual, found := resolver.ResponseValue(expr)
	met := found && strings.TrimSpace(actual) == strings.TrimSpace(c.Expected)
	if c.Negate {
		return !met
	}
	return met
}
