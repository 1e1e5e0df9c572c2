package provision

import "sort"

// Course pairs a course display name with the Ansible tag that provisions it.
type Course struct {
	Name string
	Tag  string
}

// courseTagMapping enumerates the courses the configuration tool can
// provision. If no tags were passed to ansible-pull every role would run, so
// callers always include the base role tag alongside any of these.
var courseTagMapping = map[string]string{
	"CS 101": "cs101",
	"CS 149": "cs149",
	"CS 159": "cs159",
	"CS 261": "cs261",
	"CS 354": "cs354",
	"CS 361": "cs361",
	"CS 430": "cs430",
}

// Catalog returns the known courses sorted by display name.
func Catalog() []Course {
	courses := make([]Course, 0, len(courseTagMapping))
	for courseName, courseTag := range courseTagMapping {
		courses = append(courses, Course{Name: courseName, Tag: courseTag})
	}
	sort.Slice(courses, func(firstIndex int, secondIndex int) bool {
		return courses[firstIndex].Name < courses[secondIndex].Name
	})
	return courses
}

// TagForCourse resolves a course display name to its Ansible tag.
func TagForCourse(courseName string) (string, bool) {
	courseTag, found := courseTagMapping[courseName]
	return courseTag, found
}

// CourseForTag resolves an Ansible tag back to its course display name.
func CourseForTag(courseTag string) (string, bool) {
	for courseName, mappedTag := range courseTagMapping {
		if mappedTag == courseTag {
			return courseName, true
		}
	}
	return "", false
}
