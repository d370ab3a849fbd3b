package pipeline

// Files manages the tag-to-path mapping for one pipeline: everything in
// the pipeline refers to a particular file by its (aliased) tag, and this
// is where downstream stages find the locations upstream stages write to.
type Files struct {
	paths   map[string]string
	formats map[string]string
}

// NewFiles creates an empty file map.
func NewFiles() *Files {
	return &Files{
		paths:   make(map[string]string),
		formats: make(map[string]string),
	}
}

// Insert records a tag's physical path and format.
func (f *Files) Insert(tag, path, format string) {
	f.paths[tag] = path
	if format != "" {
		f.formats[tag] = format
	}
}

// Path returns the physical path registered for a tag.
func (f *Files) Path(tag string) (string, bool) {
	path, ok := f.paths[tag]
	return path, ok
}

// Format returns the file format registered for a tag.
func (f *Files) Format(tag string) string {
	return f.formats[tag]
}

// Len returns the number of registered tags.
func (f *Files) Len() int {
	return len(f.paths)
}
