package content

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortOrder orders the course listing.
type SortOrder int

const (
	SortNewest SortOrder = iota
	SortOldest
	SortTitleAsc
	SortTitleDesc
)

// SortOrders lists every order in the sequence the listing page offers them.
var SortOrders = []SortOrder{SortNewest, SortOldest, SortTitleAsc, SortTitleDesc}

// String returns the label used in the sort select and the sort query
// parameter.
func (s SortOrder) String() string {
	switch s {
	case SortNewest:
		return "Newest"
	case SortOldest:
		return "Oldest"
	case SortTitleAsc:
		return "A-Z"
	case SortTitleDesc:
		return "Z-A"
	default:
		return fmt.Sprintf("SortOrder(%d)", int(s))
	}
}

// ParseSortOrder parses a label such as "A-Z". Matching ignores case. The
// empty string selects SortNewest.
func ParseSortOrder(label string) (SortOrder, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return SortNewest, nil
	}
	for _, s := range SortOrders {
		if strings.EqualFold(s.String(), label) {
			return s, nil
		}
	}
	return SortNewest, fmt.Errorf("unknown sort order %q (want one of Newest, Oldest, A-Z, Z-A)", label)
}

// FilterByTags keeps the courses that carry every tag in tags. An empty tag
// list keeps everything.
func FilterByTags(courses []Course, tags []string) []Course {
	out := make([]Course, 0, len(courses))
	for _, course := range courses {
		keep := true
		for _, tag := range tags {
			if tag == "" {
				continue
			}
			if !course.HasTag(tag) {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, course)
		}
	}
	return out
}

// SortCourses sorts courses in place. Title orders use an English collator
// rather than byte order, so "apple" sorts before "Banana".
func SortCourses(courses []Course, order SortOrder) {
	switch order {
	case SortOldest:
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].Modified.Before(courses[j].Modified)
		})
	case SortTitleAsc, SortTitleDesc:
		col := collate.New(language.English)
		sort.SliceStable(courses, func(i, j int) bool {
			cmp := col.CompareString(courses[i].Title, courses[j].Title)
			if order == SortTitleDesc {
				return cmp > 0
			}
			return cmp < 0
		})
	default:
		sort.SliceStable(courses, func(i, j int) bool {
			return courses[i].Modified.After(courses[j].Modified)
		})
	}
}

// Query is a filtered and sorted view of the course listing.
type Query struct {
	Tags  []string
	Order SortOrder
}

// Apply filters and sorts a copy of courses.
func (q Query) Apply(courses []Course) []Course {
	out := FilterByTags(courses, q.Tags)
	SortCourses(out, q.Order)
	return out
}

// AllTags returns the distinct tags used by courses, sorted.
func AllTags(courses []Course) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, c := range courses {
		for _, t := range c.Tags {
			if !seen[t] {
				seen[t] = true
				tags = append(tags, t)
			}
		}
	}
	sort.Strings(tags)
	return tags
}
