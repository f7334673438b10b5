package descriptor

// Record is the untyped watch description as the coordinator sends it.
type Record struct {
	ProjectID       string           `json:"project"`
	Root            string           `json:"root"`
	IgnoredPaths    []string         `json:"ignoredPaths"`
	IgnoredFiles    []string         `json:"ignoredFiles"`
	WatchStateID    string           `json:"watchStateId"`
	ProjectType     string           `json:"projectType"`
	CreationTime    int64            `json:"creationTime"`
	ReferencedFiles []ReferencedFile `json:"referencedFiles"`
	Deleted         bool             `json:"deleted"`
}

// ReferencedFile contributes one extra path to watch beside the recursive root.
type ReferencedFile struct {
	Path string `json:"path"`
}
