package wizard

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldKind selects how a raw value is interpreted before validation.
type FieldKind string

const (
	FieldText   FieldKind = "text"
	FieldSecret FieldKind = "secret"
	FieldNumber FieldKind = "number"
	FieldList   FieldKind = "list"
	FieldChoice FieldKind = "choice"
)

// Field is one input on a step.
type Field struct {
	Name  string
	Label string
	Kind  FieldKind
	// Rules are validator tags applied to the trimmed string value.
	Rules string
	// NumberRules are applied to the parsed value of a FieldNumber.
	NumberRules string
	Choices     []string
}

// Step is one page of the wizard.
type Step struct {
	Name   string
	Title  string
	Fields []Field
}

// Field names.
const (
	FieldFullName   = "full_name"
	FieldEmail      = "email"
	FieldPassword   = "password"
	FieldRole       = "role"
	FieldHeadline   = "headline"
	FieldSkills     = "skills"
	FieldHourlyRate = "hourly_rate"
)

// Steps is the signup flow.
var Steps = []Step{
	{
		Name:  "account",
		Title: "Create your account",
		Fields: []Field{
			{Name: FieldFullName, Label: "Full name", Kind: FieldText, Rules: "required,min=2"},
			{Name: FieldEmail, Label: "Email", Kind: FieldText, Rules: "required,email"},
			{Name: FieldPassword, Label: "Password", Kind: FieldSecret, Rules: "required,min=8"},
		},
	},
	{
		Name:  "profile",
		Title: "Tell us about yourself",
		Fields: []Field{
			{Name: FieldRole, Label: "Role", Kind: FieldChoice, Rules: "required,oneof=requester provider", Choices: []string{"requester", "provider"}},
			{Name: FieldHeadline, Label: "Headline", Kind: FieldText, Rules: "required,min=10,max=120"},
			{Name: FieldSkills, Label: "Skills", Kind: FieldList, Rules: "required"},
			{Name: FieldHourlyRate, Label: "Hourly rate", Kind: FieldNumber, Rules: "omitempty,numeric", NumberRules: "gte=0,lte=1000"},
		},
	},
}

var validate = validator.New()

// ValidateStep checks the fields of step stepIndex against values. It is pure:
// the same input always yields the same map, and an empty map means valid.
// An out-of-range step yields a single "step" error.
func ValidateStep(stepIndex int, values Values) map[string]string {
	errs := make(map[string]string)
	if stepIndex < 0 || stepIndex >= len(Steps) {
		errs["step"] = fmt.Sprintf("unknown step %d", stepIndex)
		return errs
	}
	for _, field := range Steps[stepIndex].Fields {
		if msg := validateField(field, values[field.Name]); msg != "" {
			errs[field.Name] = msg
		}
	}
	return errs
}

// ValidateAll checks every step and returns the first failing step index, or
// -1 when all values are valid.
func ValidateAll(values Values) (int, map[string]string) {
	for i := range Steps {
		if errs := ValidateStep(i, values); len(errs) > 0 {
			return i, errs
		}
	}
	return -1, map[string]string{}
}

func validateField(field Field, raw string) string {
	value := strings.TrimSpace(raw)
	if field.Kind == FieldSecret {
		value = raw
	}
	if field.Kind == FieldList && len(SplitList(value)) == 0 {
		value = ""
	}

	if err := validate.Var(value, field.Rules); err != nil {
		return describe(field, err)
	}
	if field.Kind == FieldNumber && value != "" && field.NumberRules != "" {
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Sprintf("%s must be a number", field.Label)
		}
		if err := validate.Var(n, field.NumberRules); err != nil {
			return describe(field, err)
		}
	}
	return ""
}

func describe(field Field, err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return fmt.Sprintf("%s is invalid", field.Label)
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field.Label)
	case "email":
		return "Enter a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field.Label, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field.Label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field.Label, strings.Join(strings.Fields(fe.Param()), ", "))
	case "numeric":
		return fmt.Sprintf("%s must be a number", field.Label)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field.Label, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field.Label, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field.Label)
	}
}

// SplitList splits a comma-separated value, dropping blanks.
func SplitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
