package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassMatcher(t *testing.T) {
	grade5 := Class{ID: "c5", Name: "Grade 5", Grade: "5"}

	cases := []struct {
		name    string
		student Student
		section string
		want    bool
	}{
		{"by id", Student{ClassID: "c5"}, "", true},
		{"by name ignoring case", Student{ClassName: " grade 5 "}, "", true},
		{"by embedded grade", Student{ClassName: "Class 5-A"}, "", true},
		{"grade must be a whole number", Student{ClassName: "Grade 15"}, "", false},
		{"other class", Student{ClassID: "c6", ClassName: "Grade 6"}, "", false},
		{"section filter", Student{ClassID: "c5", SectionID: "B"}, "A", false},
		{"section match", Student{ClassID: "c5", SectionID: "A"}, "A", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NewClassMatcher(grade5, tc.section).Matches(tc.student))
		})
	}
}

func TestClassMatcherWithoutGrade(t *testing.T) {
	m := NewClassMatcher(Class{ID: "nursery", Name: "Nursery"}, "")
	assert.True(t, m.Matches(Student{ClassName: "nursery"}))
	assert.False(t, m.Matches(Student{ClassName: "Grade 1"}))
}
