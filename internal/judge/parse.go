package judge

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/hmcrab/bakeoff/internal/result"
)

var (
	// Per-test lines from verbose output:
	//   tests/test_calc.py::test_add PASSED  [ 12%]
	testLineRe = regexp.MustCompile(`(?m)^(\S+::\S+)\s+(PASSED|FAILED|ERROR|XFAIL|XPASS|SKIPPED)`)

	// Summary counts: "7 passed", "1 failed", "2 errors". The summary line
	// is authoritative; per-test lines only add names.
	passedRe = regexp.MustCompile(`(\d+) passed`)
	failedRe = regexp.MustCompile(`(\d+) failed`)
	errorRe  = regexp.MustCompile(`(\d+) error`)

	noTestsRe = regexp.MustCompile(`no tests ran`)
)

// Parse extracts a JudgeResult from raw pytest output.
//
// Output with no recognizable pytest shape at all (the runner never started,
// the binary was missing) yields Ran=false. A suite that ran and scored zero
// keeps Ran=true; those are different failures and must stay distinguishable.
func Parse(output string) *result.JudgeResult {
	jr := &result.JudgeResult{Output: output}

	for _, m := range testLineRe.FindAllStringSubmatch(output, -1) {
		jr.Tests = append(jr.Tests, result.TestCase{
			Name:   m[1],
			Passed: m[2] == "PASSED" || m[2] == "XPASS",
			Detail: strings.ToLower(m[2]),
		})
	}

	jr.Passed = lastCount(passedRe, output)
	jr.Failed = lastCount(failedRe, output)
	jr.Errors = lastCount(errorRe, output)
	jr.Total = jr.Passed + jr.Failed + jr.Errors

	switch {
	case jr.Total > 0, len(jr.Tests) > 0, noTestsRe.MatchString(output):
		jr.Ran = true
	case strings.Contains(output, "===="):
		// A pytest session banner with no counts still means pytest ran
		jr.Ran = true
	}
	return jr
}

func lastCount(re *regexp.Regexp, s string) int {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return 0
	}
	n, err := strconv.Atoi(matches[len(matches)-1][1])
	if err != nil {
		return 0
	}
	return n
}
