package judge

import "testing"

const verboseOutput = `============================= test session starts ==============================
collected 8 items

tests/test_calc.py::test_add PASSED                                      [ 12%]
tests/test_calc.py::test_sub PASSED                                      [ 25%]
tests/test_calc.py::test_mul PASSED                                      [ 37%]
tests/test_calc.py::test_div PASSED                                      [ 50%]
tests/test_calc.py::test_div_zero FAILED                                 [ 62%]
tests/test_calc.py::test_pow PASSED                                      [ 75%]
tests/test_calc.py::test_neg PASSED                                      [ 87%]
tests/test_calc.py::test_float PASSED                                    [100%]

=========================== short test summary info ============================
FAILED tests/test_calc.py::test_div_zero - ZeroDivisionError
========================= 7 passed, 1 failed in 0.34s ==========================
`

const errorOutput = `============================= test session starts ==============================
collected 0 items / 1 error

==================================== ERRORS ====================================
______________________ ERROR collecting tests/test_calc.py _____________________
ModuleNotFoundError: No module named 'calc'
=========================== short test summary info ============================
ERROR tests/test_calc.py
=============================== 1 error in 0.08s ===============================
`

func TestParseVerbose(t *testing.T) {
	t.Parallel()

	jr := Parse(verboseOutput)
	if !jr.Ran {
		t.Fatal("judge should be marked as ran")
	}
	if jr.Passed != 7 || jr.Failed != 1 || jr.Errors != 0 || jr.Total != 8 {
		t.Errorf("counts = %d/%d/%d total %d", jr.Passed, jr.Failed, jr.Errors, jr.Total)
	}
	if len(jr.Tests) != 8 {
		t.Fatalf("parsed %d test lines, want 8", len(jr.Tests))
	}
	if jr.Tests[4].Name != "tests/test_calc.py::test_div_zero" || jr.Tests[4].Passed {
		t.Errorf("failed test not identified: %+v", jr.Tests[4])
	}
	if jr.Verdict() != "partial" {
		t.Errorf("verdict = %q", jr.Verdict())
	}
}

func TestParseCollectionError(t *testing.T) {
	t.Parallel()

	// Agent produced nothing: the suite runs but every import explodes.
	// This is a scored zero, not a missing judge.
	jr := Parse(errorOutput)
	if !jr.Ran {
		t.Fatal("collection errors still mean the judge ran")
	}
	if jr.Errors != 1 || jr.Passed != 0 {
		t.Errorf("counts = %d passed, %d errors", jr.Passed, jr.Errors)
	}
	if jr.Verdict() != "fail" {
		t.Errorf("verdict = %q", jr.Verdict())
	}
}

func TestParseNoPytest(t *testing.T) {
	t.Parallel()

	for _, out := range []string{
		"",
		"sh: python3: command not found\n",
		"Traceback (most recent call last):\n  ...\nImportError: no pytest\n",
	} {
		jr := Parse(out)
		if jr.Ran {
			t.Errorf("output %q should yield Ran=false", out)
		}
		if jr.Verdict() != "no-judge" {
			t.Errorf("verdict for %q = %q, want no-judge", out, jr.Verdict())
		}
	}
}

func TestParseNoTestsRan(t *testing.T) {
	t.Parallel()

	jr := Parse("============ no tests ran in 0.01s ============\n")
	if !jr.Ran {
		t.Fatal("empty suite still ran")
	}
	if jr.Total != 0 || jr.Verdict() != "no-tests" {
		t.Errorf("total = %d, verdict = %q", jr.Total, jr.Verdict())
	}
}
