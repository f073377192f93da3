package gemini

import (
	"embed"
	"strconv"
	"strings"

	"github.com/spigell/hh-screener/internal/ai"
)

//go:embed prompts/*.md
var promptFiles embed.FS

var (
	classifyTemplate  = mustPrompt("prompts/classify.md")
	interviewTemplate = mustPrompt("prompts/interview.md")
	verdictTemplate   = mustPrompt("prompts/verdict.md")
)

func mustPrompt(name string) string {
	data, err := promptFiles.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return string(data)
}

func buildClassifyPrompt() string {
	return strings.ReplaceAll(classifyTemplate, "{{ROLES}}", roleList())
}

func buildInterviewPrompt(role ai.Role, turn, maxTurns int) string {
	return strings.NewReplacer(
		"{{ROLE}}", string(role),
		"{{TURN}}", strconv.Itoa(turn),
		"{{MAX_TURNS}}", strconv.Itoa(maxTurns),
		"{{VERDICTS}}", verdictList(),
	).Replace(interviewTemplate)
}

func buildVerdictPrompt() string {
	return strings.NewReplacer(
		"{{INCOMPETENT}}", string(ai.RoleIncompetent),
		"{{VERDICTS}}", verdictList(),
	).Replace(verdictTemplate)
}

func roleList() string {
	lines := make([]string, 0, len(ai.Roles()))
	for _, role := range ai.Roles() {
		lines = append(lines, "- "+string(role)+" ("+role.Hint()+")")
	}
	return strings.Join(lines, "\n")
}

func verdictList() string {
	lines := make([]string, 0, len(ai.VerdictLabels()))
	for _, role := range ai.VerdictLabels() {
		lines = append(lines, "- "+role.Verdict())
	}
	return strings.Join(lines, "\n")
}
