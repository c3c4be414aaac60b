package phase

// Artifacts holds the list-valued outputs that concurrent phases may both
// contribute to. Merging is always concatenation in completion order;
// last-writer-wins would silently drop sibling output.
type Artifacts struct {
	ImagePaths []string `json:"image_paths,omitempty"`
	StockPaths []string `json:"stock_paths,omitempty"`
	VoicePaths []string `json:"voice_paths,omitempty"`
	VideoPaths []string `json:"video_paths,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
}

// Merge appends other's entries onto a.
func (a *Artifacts) Merge(other Artifacts) {
	a.ImagePaths = append(a.ImagePaths, other.ImagePaths...)
	a.StockPaths = append(a.StockPaths, other.StockPaths...)
	a.VoicePaths = append(a.VoicePaths, other.VoicePaths...)
	a.VideoPaths = append(a.VideoPaths, other.VideoPaths...)
	a.Warnings = append(a.Warnings, other.Warnings...)
}

// Empty reports whether no artifact list has entries.
func (a Artifacts) Empty() bool {
	return len(a.ImagePaths) == 0 &&
		len(a.StockPaths) == 0 &&
		len(a.VoicePaths) == 0 &&
		len(a.VideoPaths) == 0 &&
		len(a.Warnings) == 0
}
