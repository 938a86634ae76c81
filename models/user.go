// models/user.go
package models

import (
	"regexp"
	"strings"
)

// RoleStudent is the user role that can be invoiced.
const RoleStudent = "student"

// Student is a user with role "student" as resolved from the directory.
// The ledger only ever reads it.
type Student struct {
	ID              string `bson:"id" json:"id"`
	TenantID        string `bson:"tenantId" json:"tenantId"`
	Name            string `bson:"name" json:"name"`
	Email           string `bson:"email,omitempty" json:"email,omitempty"`
	Role            string `bson:"role" json:"role"`
	ClassID         string `bson:"classId,omitempty" json:"classId,omitempty"`
	ClassName       string `bson:"className,omitempty" json:"className,omitempty"`
	SectionID       string `bson:"sectionId,omitempty" json:"sectionId,omitempty"`
	AdmissionNumber string `bson:"admissionNumber,omitempty" json:"admissionNumber,omitempty"`
	GuardianEmail   string `bson:"guardianEmail,omitempty" json:"guardianEmail,omitempty"`
	IsActive        bool   `bson:"isActive" json:"isActive"`
}

// Class is the canonical class reference used for bulk generation.
type Class struct {
	ID       string `bson:"id" json:"id"`
	TenantID string `bson:"tenantId" json:"tenantId"`
	Name     string `bson:"name" json:"name"`
	Grade    string `bson:"grade,omitempty" json:"grade,omitempty"`
}

// Tenant carries the branding fields printed on receipts.
type Tenant struct {
	ID        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	Subdomain string `bson:"subdomain" json:"subdomain"`
	LogoURL   string `bson:"logoUrl,omitempty" json:"logoUrl,omitempty"`
	Address   string `bson:"address,omitempty" json:"address,omitempty"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
	Email     string `bson:"email,omitempty" json:"email,omitempty"`
	Currency  string `bson:"currency,omitempty" json:"currency,omitempty"`
}

var gradeNumber = regexp.MustCompile(`\d+`)

// GradeNumber extracts the first number embedded in the class grade or name
// ("Grade 5", "5", "Class 5-A" all give "5").
func (c Class) GradeNumber() string {
	if g := gradeNumber.FindString(c.Grade); g != "" {
		return g
	}
	return gradeNumber.FindString(c.Name)
}

// GradePattern is the regular expression used to match class names by embedded grade number.
// It matches the number anywhere as a standalone token, so "1" also matches "Block 1 - Grade 3".
func GradePattern(grade string) string {
	return `(^|\D)` + regexp.QuoteMeta(grade) + `(\D|$)`
}

// ClassMatcher is the tolerant student-to-class match used by bulk generation:
// class id OR class display name OR embedded grade number, unioned.
// An empty section matches every section.
type ClassMatcher struct {
	class   Class
	section string
	grade   *regexp.Regexp
}

// NewClassMatcher compiles the grade pattern of c once for a whole run.
func NewClassMatcher(c Class, sectionID string) ClassMatcher {
	m := ClassMatcher{class: c, section: sectionID}
	if g := c.GradeNumber(); g != "" {
		m.grade = regexp.MustCompile(GradePattern(g))
	}
	return m
}

func (m ClassMatcher) Matches(s Student) bool {
	if m.section != "" && s.SectionID != m.section {
		return false
	}
	if m.class.ID != "" && s.ClassID == m.class.ID {
		return true
	}
	if m.class.Name != "" && strings.EqualFold(strings.TrimSpace(s.ClassName), strings.TrimSpace(m.class.Name)) {
		return true
	}
	return m.grade != nil && s.ClassName != "" && m.grade.MatchString(s.ClassName)
}
