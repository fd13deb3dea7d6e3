// Package policy decides whether a principal may perform an action on a kind of resource.
// Decisions are pure: no I/O, no errors, unknown roles simply fall through to Deny.
package policy

import "github.com/SAP-F-2025/student-records-service/internal/models"

type Action string

const (
	// ActionRead covers listings and searches
	ActionRead Action = "read"
	// ActionReadOne covers lookup of a single record by id
	ActionReadOne Action = "read_one"
	// ActionWrite covers create, update and delete
	ActionWrite Action = "write"
)

type Resource string

const (
	ResourceStudent    Resource = "student"
	ResourceMarks      Resource = "marks"
	ResourceAttendance Resource = "attendance"
	ResourceUser       Resource = "user"
	ResourcePreview    Resource = "preview"
)

type Decision bool

const (
	Allow Decision = true
	Deny  Decision = false
)

func (d Decision) String() string {
	if d {
		return "allow"
	}
	return "deny"
}

// Authorize evaluates the rules in precedence order
func Authorize(p *models.Principal, action Action, resource Resource) Decision {
	if p.IsAdmin() {
		return Allow
	}

	if action == ActionReadOne && resource == ResourceStudent {
		return Allow
	}

	if p == nil || len(p.Roles) == 0 {
		return Deny
	}

	if action == ActionRead || action == ActionReadOne {
		switch resource {
		case ResourceStudent, ResourceMarks, ResourceAttendance, ResourcePreview:
			return Allow
		}
		return Deny
	}

	if action != ActionWrite {
		return Deny
	}

	switch resource {
	case ResourceMarks:
		if p.HasRole(models.RoleTeacher) {
			return Allow
		}
	case ResourceAttendance:
		if p.HasRole(models.RoleTeacher) {
			return Allow
		}
	}

	return Deny
}
