package dto

// GetImageRequest is read from the query string of GET /api/images.
type GetImageRequest struct {
	File   string `validate:"required,imagefile"`
	Width  string `validate:"omitempty,dimension"`
	Height string `validate:"omitempty,dimension"`
}

// WarmRequest is the JSON body of POST /api/thumbnails.
type WarmRequest struct {
	File   string `json:"file" validate:"required,imagefile"`
	Width  string `json:"width" validate:"required,dimension"`
	Height string `json:"height" validate:"required,dimension"`
}
