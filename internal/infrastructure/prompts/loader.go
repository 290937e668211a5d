package prompts

import (
	_ "embed"
)

//go:embed planner.txt
var PlannerSystemPrompt string

//go:embed verifier.txt
var VerifierSystemPrompt string
