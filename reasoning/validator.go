package reasoning

import (
	"fmt"
	"regexp"
	"strings"
)

// ValidationResult is the outcome of a validator run. A failed result
// carries a fix prompt for re-injection as a user turn.
type ValidationResult struct {
	Passed    bool
	Issues    []string
	FixPrompt string
}

var (
	numberRe      = regexp.MustCompile(`\b\d+\.?\d*\b`)
	finalAnswerRe = regexp.MustCompile(`(?i)FINAL_ANSWER:\s*(\d+\.?\d*)`)

	finalAnswerPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)FINAL_ANSWER:\s*(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?i)(?:the answer is|answer:|final answer:)\s*(.+?)(?:\n|$)`),
		regexp.MustCompile(`(?i)(?:therefore|thus|so),?\s*(.+?)(?:\n|$)`),
	}
)

// refusalFixPrompt steers short refusals back to tool use.
const refusalFixPrompt = "SYSTEM ALERT: You are an autonomous agent. Do not apologize. Do not refuse. You have TOOLS (web.search, browser.browse). USE THEM to solve the task. If you need to search for information, generate a tool call now."

// Validator checks model output against benchmark requirements.
type Validator struct{}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate applies the validator matching the task type. Task types without
// a dedicated validator get the refusal guard only.
func (v *Validator) Validate(response string, taskType TaskType, criteria *Criteria) ValidationResult {
	if criteria == nil {
		criteria = &Criteria{}
	}

	switch taskType {
	case TaskArithmetic, TaskSequence:
		return v.ValidateArithmetic(response, criteria.ExpectedAnswer)
	case TaskLogic:
		keywords := criteria.RequiredKeywords
		if len(keywords) == 0 {
			keywords = []string{"no", "cannot", "some", "not all", "yes", "must"}
		}
		return v.ValidateKeywords(response, keywords, 1)
	case TaskProblemSolving:
		verbs := criteria.RequiredVerbs
		if len(verbs) == 0 {
			verbs = []string{"fill", "pour", "empty", "transfer"}
		}
		numbers := criteria.RequiredNumbers
		if len(numbers) == 0 {
			numbers = []string{"3", "4", "5"}
		}
		return v.ValidateProcedural(response, verbs, numbers)
	}

	if result, refused := v.checkRefusal(response); refused {
		return result
	}
	return ValidationResult{Passed: true}
}

// ValidateArithmetic passes when the expected answer appears in a
// FINAL_ANSWER marker or among the response's numeric tokens.
func (v *Validator) ValidateArithmetic(response, expected string) ValidationResult {
	var issues []string

	if match := finalAnswerRe.FindStringSubmatch(response); match != nil {
		if match[1] == expected {
			return ValidationResult{Passed: true}
		}
		issues = append(issues, fmt.Sprintf("FINAL_ANSWER is %s, expected %s", match[1], expected))
	} else {
		for _, num := range numberRe.FindAllString(response, -1) {
			if num == expected {
				return ValidationResult{Passed: true}
			}
		}
		issues = append(issues, fmt.Sprintf("Expected answer '%s' not found in response", expected))
	}

	return ValidationResult{
		Issues: issues,
		FixPrompt: fmt.Sprintf(`Your previous answer failed validation.
Expected numeric answer: %s
Your answer did not contain this exact number.

Rewrite your answer in this exact format:
FINAL_ANSWER: %s

Do not add extra text after the final answer.`, expected, expected),
	}
}

// ValidateKeywords passes when at least minCount required keywords appear,
// case-insensitive. A minCount of zero defaults to a majority.
func (v *Validator) ValidateKeywords(response string, required []string, minCount int) ValidationResult {
	lower := strings.ToLower(response)
	var found, missing []string
	for _, kw := range required {
		if strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		} else {
			missing = append(missing, kw)
		}
	}

	if minCount <= 0 {
		minCount = len(required)/2 + 1
	}
	if len(found) >= minCount {
		return ValidationResult{Passed: true}
	}

	return ValidationResult{
		Issues: []string{fmt.Sprintf("Missing required keywords: %v", missing)},
		FixPrompt: fmt.Sprintf(`Your previous answer failed validation.
Missing keywords: %s
Found keywords: %s

Rewrite your answer to explicitly include ALL of these keywords:
%s

Your answer MUST contain these exact words.`,
			strings.Join(missing, ", "), strings.Join(found, ", "), strings.Join(missing, ", ")),
	}
}

// ValidateProcedural passes when at least half the required action verbs and
// half the required numbers appear.
func (v *Validator) ValidateProcedural(response string, verbs, numbers []string) ValidationResult {
	lower := strings.ToLower(response)
	var foundVerbs, missingVerbs []string
	for _, verb := range verbs {
		if strings.Contains(lower, strings.ToLower(verb)) {
			foundVerbs = append(foundVerbs, verb)
		} else {
			missingVerbs = append(missingVerbs, verb)
		}
	}
	var foundNumbers, missingNumbers []string
	for _, num := range numbers {
		if strings.Contains(response, num) {
			foundNumbers = append(foundNumbers, num)
		} else {
			missingNumbers = append(missingNumbers, num)
		}
	}

	if len(foundVerbs) >= len(verbs)/2 && len(foundNumbers) >= len(numbers)/2 {
		return ValidationResult{Passed: true}
	}

	var issues []string
	if len(missingVerbs) > 0 {
		issues = append(issues, fmt.Sprintf("Missing action verbs: %v", missingVerbs))
	}
	if len(missingNumbers) > 0 {
		issues = append(issues, fmt.Sprintf("Missing numbers: %v", missingNumbers))
	}

	return ValidationResult{
		Issues: issues,
		FixPrompt: fmt.Sprintf(`Your previous answer failed validation.
Missing action verbs: %s
Missing numbers: %s

Rewrite your answer as step-by-step instructions.
Each step MUST include:
- An action verb from: %s
- Container sizes: %s

Example format:
Step 1: Fill the 5-gallon jug
Step 2: Pour from 5-gallon into 3-gallon jug
...`,
			orNone(missingVerbs), orNone(missingNumbers),
			strings.Join(verbs, ", "), strings.Join(numbers, ", ")),
	}
}

// checkRefusal flags short responses that apologize or refuse instead of
// using tools.
func (v *Validator) checkRefusal(response string) (ValidationResult, bool) {
	lower := strings.ToLower(response)
	refusing := strings.Contains(lower, "apologize") ||
		strings.Contains(lower, "i cannot") ||
		strings.Contains(lower, "sorry")
	if !refusing || len(response) >= 200 {
		return ValidationResult{}, false
	}
	return ValidationResult{
		Issues:    []string{"Triggered Refusal Detector"},
		FixPrompt: refusalFixPrompt,
	}, true
}

// ExtractFinalAnswer pulls the answer out of a response using marker, answer
// phrase and conclusion patterns, in that order.
func (v *Validator) ExtractFinalAnswer(response string) string {
	for _, re := range finalAnswerPatterns {
		if match := re.FindStringSubmatch(response); match != nil {
			return strings.TrimSpace(match[1])
		}
	}
	return ""
}

func orNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
