package model

// Strategy represents a named trading strategy. Deletion is soft: disabled
// strategies keep their rows with is_active = 0 so historical trades stay
// attributable.
type Strategy struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    bool   `json:"isActive"`
	Tags        []Tag  `json:"tags,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
}

// Tag classifies strategies. Predefined tags are seeded by migration and can
// neither be renamed nor deleted.
type Tag struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IsPredefined bool   `json:"isPredefined"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// TagUsage pairs a tag with the number of strategies referencing it.
type TagUsage struct {
	Tag
	UsageCount int `json:"usageCount"`
}
