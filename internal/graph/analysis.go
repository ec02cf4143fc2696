package graph

// Location is a position in a source file (1-based line, 0-based column)
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// DependencyReference is one import or require occurrence
type DependencyReference struct {
	Specifier    string   `json:"specifier"`              // 原始 specifier 文本
	ResolvedPath string   `json:"resolvedPath,omitempty"` // 空表示未解析
	Location     Location `json:"location"`
}

// Resolved reports whether the reference was mapped to a file
func (r DependencyReference) Resolved() bool {
	return r.ResolvedPath != ""
}

// Target returns the graph node id the reference points at
func (r DependencyReference) Target() string {
	if r.ResolvedPath != "" {
		return r.ResolvedPath
	}
	return r.Specifier
}

// References splits dependencies by classification
type References struct {
	Internal []DependencyReference `json:"internal"`
	External []DependencyReference `json:"external"`
}

// Add appends ref to the bucket matching its specifier
func (r *References) Add(ref DependencyReference) {
	if KindOf(ref.Specifier) == NodeKindInternal {
		r.Internal = append(r.Internal, ref)
		return
	}
	r.External = append(r.External, ref)
}

// Len returns the total number of references
func (r References) Len() int {
	return len(r.Internal) + len(r.External)
}

// ExportRecord captures an export construct verbatim
type ExportRecord struct {
	Code     string   `json:"code"`
	Location Location `json:"location"`
}

// AnalysisResult is everything extracted from one file
type AnalysisResult struct {
	Kind     NodeKind       `json:"type"`
	Imports  References     `json:"imports"`
	Requires References     `json:"requires"`
	Exports  []ExportRecord `json:"exports"`
}

// NewAnalysisResult returns a result with empty, non-nil lists
func NewAnalysisResult(kind NodeKind) *AnalysisResult {
	return &AnalysisResult{
		Kind:     kind,
		Imports:  References{Internal: []DependencyReference{}, External: []DependencyReference{}},
		Requires: References{Internal: []DependencyReference{}, External: []DependencyReference{}},
		Exports:  []ExportRecord{},
	}
}

// DependencyCount returns the number of import and require references
func (a *AnalysisResult) DependencyCount() int {
	return a.Imports.Len() + a.Requires.Len()
}

// FileAnalysis pairs an analyzed file with its result
type FileAnalysis struct {
	Path     string
	Analysis *AnalysisResult
}
