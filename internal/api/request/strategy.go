package request

// StrategyRequest is the payload for creating or updating a strategy. Tags
// holds tag names; unknown names are created as user-defined tags.
type StrategyRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
}

// TagRequest is the payload for creating or renaming a tag.
type TagRequest struct {
	Name string `json:"name"`
}
