package gucfile

import "strings"

// ClassWhitelistSetting is the distinguished setting name controlling which
// qualified-name class prefixes are acceptable.
const ClassWhitelistSetting = "custom_variable_classes"

// IncludeDirective is the case-insensitive directive name that recurses
// into another file.
const IncludeDirective = "include"

// Assignment is one surviving logical line: a decoded name/value pair with
// the file and line it came from.
type Assignment struct {
	Name       string
	Value      string
	Filename   string
	SourceLine int
}

// AssignmentList is an ordered sequence of Assignments with a distinguished
// head slot reserved for ClassWhitelistSetting: if an assignment
// for that setting exists, exactly one exists and it is always items[0],
// regardless of where it appeared in the file.
type AssignmentList struct {
	items []*Assignment
}

// NewAssignmentList returns an empty list.
func NewAssignmentList() *AssignmentList {
	return &AssignmentList{}
}

// Items returns the assignments in file order (head first).
func (l *AssignmentList) Items() []*Assignment {
	return l.items
}

// Len reports how many assignments are in the list.
func (l *AssignmentList) Len() int {
	return len(l.items)
}

// Head returns the class-whitelist assignment if one has been set, or nil.
func (l *AssignmentList) Head() *Assignment {
	if len(l.items) == 0 {
		return nil
	}
	if !strings.EqualFold(l.items[0].Name, ClassWhitelistSetting) {
		return nil
	}
	return l.items[0]
}

// Append adds a into the tail, preserving insertion order. Used for every
// setting except ClassWhitelistSetting.
func (l *AssignmentList) Append(a *Assignment) {
	l.items = append(l.items, a)
}

// SetClassWhitelist installs a as the head of the list, replacing any
// existing class-whitelist assignment so that duplicates of
// ClassWhitelistSetting collapse to the last one seen while staying first.
func (l *AssignmentList) SetClassWhitelist(a *Assignment) {
	if head := l.Head(); head != nil {
		l.items[0] = a
		return
	}
	l.items = append([]*Assignment{a}, l.items...)
}
