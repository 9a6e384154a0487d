package content

import (
	"context"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/conneroisu/syllabus/internal/errors"
)

// Check walks every course and collects layout problems instead of stopping
// at the first one. Errors are what would make a build fail; warnings are
// files that will be ignored or pages that fall back to a default title.
func (r *Resolver) Check(ctx context.Context) (*errors.ErrorCollector, error) {
	collector := errors.NewErrorCollector()

	ids, err := r.CourseIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		collector.Add(errors.Problem{
			Course:   ".",
			Code:     errors.ErrCodeCourseNotFound,
			Message:  "content root holds no course directories",
			Severity: errors.SeverityWarning,
		})
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.checkCourse(ctx, id, collector)
	}
	return collector, nil
}

func (r *Resolver) checkCourse(ctx context.Context, id string, collector *errors.ErrorCollector) {
	index, err := r.readIndex(id, false)
	if err != nil {
		collector.AddError(id, err)
	} else if index.Title == "" {
		collector.Add(warning(id, IndexFile, errors.ErrCodeFrontMatter, "landing page has no title"))
	}

	entries, err := fs.ReadDir(r.fsys, id)
	if err != nil {
		collector.AddError(id, err)
		return
	}

	var lessons []LessonRef
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case entry.IsDir():
			if name != r.assetDir && !strings.HasPrefix(name, ".") {
				collector.Add(warning(id, name, errors.ErrCodeInvalidPath, "directory is ignored"))
			}
			continue
		case name == IndexFile || strings.HasPrefix(name, "."):
			continue
		case !isLessonCandidate(entry):
			if path.Ext(name) == LessonExt {
				collector.Add(warning(id, name, errors.ErrCodeInvalidFileName, "file is not numbered and will not be published"))
			}
			continue
		}

		tok, err := ParseFileName(name)
		if err != nil {
			collector.AddError(id, errors.WrapContent(err, errors.ErrCodeInvalidFileName, "invalid lesson file", name))
			continue
		}
		fm, err := r.readFrontMatter(path.Join(id, name))
		if err != nil {
			collector.AddError(id, err)
			continue
		}
		if fm.Title == "" {
			collector.Add(warning(id, name, errors.ErrCodeFrontMatter, "lesson has no title"))
		}
		lessons = append(lessons, LessonRef{File: name, Token: tok, Title: fm.Title})
	}

	sort.Slice(lessons, func(i, j int) bool { return lessons[i].Token.Less(lessons[j].Token) })
	if _, err := Outline(lessons); err != nil {
		collector.AddError(id, err)
	}

	r.logger.Debug(ctx, "Checked course", "course", id, "lessons", len(lessons))
}

func warning(course, file, code, message string) errors.Problem {
	return errors.Problem{
		Course:   course,
		File:     file,
		Code:     code,
		Message:  message,
		Severity: errors.SeverityWarning,
	}
}
