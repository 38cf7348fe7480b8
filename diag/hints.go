package diag

// Info strings with a remediation hint. Lookup is by exact match.
const (
	InfoCloseTopLevel     = "close-top-level"
	InfoFunctionPlacement = "function-placement"
	InfoUnsetRead         = "unset-read"
	InfoReadonlyAssign    = "readonly-assign"
	InfoModuleLoaded      = "module-loaded"
	InfoModuleMissing     = "module-missing"
	InfoReleaseActive     = "release-active"
	InfoBreakOutsideLoop  = "break-outside-loop"
	InfoNoOverload        = "no-overload"
	InfoRedeclare         = "redeclare"
	InfoScopeLeak         = "scope-leak"
	InfoStackOverflow     = "stack-overflow"
	InfoBorderMismatch    = "border-mismatch"
)

var hints = map[string]string{
	InfoCloseTopLevel:     "use exit instead",
	InfoFunctionPlacement: "declare functions at top level or directly inside a class",
	InfoUnsetRead:         "declare the variable with $? to allow reading it while unset",
	InfoReadonlyAssign:    "variables declared with $! cannot be reassigned",
	InfoModuleLoaded:      "use acquires to load a module only when it is not active yet",
	InfoModuleMissing:     "check the module name and the configured module paths",
	InfoReleaseActive:     "a module cannot release itself or the entry module",
	InfoBreakOutsideLoop:  "break and continue are only valid inside a while loop",
	InfoNoOverload:        "check the argument kinds, or declare the parameter as Any",
	InfoRedeclare:         "pick a different name or change the parameter kinds",
	InfoScopeLeak:         "every scope opened with ':' must be closed with ';'",
	InfoStackOverflow:     "check for unbounded recursion or raise the maxframes directive",
	InfoBorderMismatch:    "elif and else follow an if; catch follows a try",
}

// HintFor returns the hint registered for info, if any.
func HintFor(info string) (string, bool) {
	h, ok := hints[info]
	return h, ok
}
