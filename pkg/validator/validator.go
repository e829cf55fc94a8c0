package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var (
	taskStatuses   = []string{"todo", "in_progress", "done"}
	taskPriorities = []string{"low", "medium", "high"}
)

func ValidateRegister(email, password string, name *string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)
	validatePassword("password", password, errs)
	if name != nil {
		validateLength("name", "Name", *name, 1, 100, errs)
	}

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)
	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateChangePassword(current, next string) ValidationErrors {
	errs := make(ValidationErrors)

	if current == "" {
		errs.Add("current_password", "Current password is required")
	}
	validatePassword("new_password", next, errs)
	if current != "" && current == next {
		errs.Add("new_password", "New password must differ from the current one")
	}

	return errs
}

func ValidateProfile(name, position *string) ValidationErrors {
	errs := make(ValidationErrors)

	if name != nil {
		validateLength("name", "Name", *name, 1, 100, errs)
	}
	if position != nil && utf8.RuneCountInString(*position) > 100 {
		errs.Add("position", "Position is too long")
	}

	return errs
}

// ValidateWorkspace checks a workspace name. A nil name is an omitted
// field on update and is accepted.
func ValidateWorkspace(name *string, required bool) ValidationErrors {
	errs := make(ValidationErrors)

	switch {
	case name == nil && required:
		errs.Add("name", "Workspace name is required")
	case name != nil:
		validateLength("name", "Workspace name", *name, 2, 100, errs)
	}

	return errs
}

func ValidateTask(title *string, status, priority *string, required bool) ValidationErrors {
	errs := make(ValidationErrors)

	switch {
	case title == nil && required:
		errs.Add("title", "Title is required")
	case title != nil:
		validateLength("title", "Title", *title, 1, 200, errs)
	}

	if status != nil && *status != "" && !oneOf(*status, taskStatuses) {
		errs.Add("status", "Status must be one of "+strings.Join(taskStatuses, ", "))
	}
	if priority != nil && *priority != "" && !oneOf(*priority, taskPriorities) {
		errs.Add("priority", "Priority must be one of "+strings.Join(taskPriorities, ", "))
	}

	return errs
}

func ValidateComment(content string) ValidationErrors {
	errs := make(ValidationErrors)
	validateLength("content", "Comment", content, 1, 5000, errs)
	return errs
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validateLength(field, label, value string, minLen, maxLen int, errs ValidationErrors) {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	switch {
	case n == 0:
		errs.Add(field, label+" is required")
	case n < minLen:
		errs.Add(field, fmt.Sprintf("%s must be at least %d characters", label, minLen))
	case n > maxLen:
		errs.Add(field, label+" is too long")
	}
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func validatePassword(field, password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add(field, "Password must be at least 8 characters")
		return
	}

	var hasLetter, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsLetter(ch):
			hasLetter = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasLetter {
		missing = append(missing, "one letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add(field, fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
