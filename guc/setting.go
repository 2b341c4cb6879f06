package guc

// Setting is one registry entry: a tunable parameter identified by a
// unique case-insensitive name.
type Setting struct {
	Name        string
	Kind        Kind
	ChangeClass ChangeClass

	Value       string
	Source      Source
	ResetSource Source
	ResetValue  string
	BootDefault string

	// SourceFile and SourceLine locate the assignment that produced
	// Value, when Source is SourceFile.
	SourceFile string
	SourceLine int

	// InFile is cleared at the start of every reload's pre-pass and set
	// when this setting is seen (and passes validation) while walking
	// the file.
	InFile bool

	Stack []StackEntry

	CheckHook  CheckHook
	AssignHook AssignHook

	// Bounds/enum metadata consulted by validateKind; nil/empty means
	// unbounded.
	IntMin     *int64
	IntMax     *int64
	RealMin    *float64
	RealMax    *float64
	EnumValues []string
	Units      []string

	// Placeholder marks a Setting the registry auto-created at commit
	// time for a qualified custom-class name with no prior definition.
	// A later module registration may replace it with a real entry.
	Placeholder bool
}

// DemoteFileSourced lowers any file-sourced provenance (Source,
// ResetSource, and every stack entry) to SourceDefault, run on a setting
// that has disappeared from the file before its boot default is
// re-applied.
func (s *Setting) DemoteFileSourced() {
	if s.Source == SourceFile {
		s.Source = SourceDefault
	}
	if s.ResetSource == SourceFile {
		s.ResetSource = SourceDefault
	}
	for i := range s.Stack {
		if s.Stack[i].Source == SourceFile {
			s.Stack[i].Source = SourceDefault
		}
	}
}
