package attendance

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/staffroom/core"
)

var (
	statusTag  = "attstatus"
	statusText = "invalid attendance status"

	subjectTag  = "attsubject"
	subjectText = "exactly one of teacher or student is required"

	errFilterDateText = "must be a date (YYYY-MM-DD)"
)

func init() {
	InitValidators(core.Validate, core.Translator)
}

// InitValidators registers the attendance validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(statusTag, statusValidation)
	core.RegisterCustomTranslation(validate, translator, statusTag, statusText)

	validate.RegisterStructValidation(subjectStructValidation, NewRecord{})
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)
}

// statusValidation checks that the status is one of Statuses.
func statusValidation(fl validator.FieldLevel) bool {
	return Status(fl.Field().String()).Valid()
}

// subjectStructValidation checks that a NewRecord is about exactly one teacher or student.
func subjectStructValidation(sl validator.StructLevel) {
	nr, ok := sl.Current().Interface().(NewRecord)
	if !ok {
		return
	}
	if (nr.TeacherID == "") == (nr.StudentID == "") {
		sl.ReportError(nr.TeacherID, "teacher_id", "TeacherID", subjectTag, "")
	}
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
