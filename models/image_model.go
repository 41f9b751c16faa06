package models

// DateLayout is the timestamp format persisted on image and compression
// records.
const DateLayout = "2006-01-02 15:04:05-0700"

type UserImage struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Path       string `json:"path"`
	Name       string `json:"name"`
	Extension  string `json:"extension"`
	Size       int64  `json:"size"`
	UploadedAt string `json:"uploaded_at"`

	// Derived per request, never persisted with a meaningful value.
	NumCompressions int    `json:"num_compressions"`
	SignedURL       string `json:"signed_url,omitempty"`
}

type UserImageCompression struct {
	ID          string `json:"id"`
	ImageID     string `json:"image_id"`
	Path        string `json:"path"`
	Quality     int    `json:"quality"`
	ResizeWidth int    `json:"resize_width,omitempty"`
	CreatedAt   string `json:"created_at"`
	Size        int64  `json:"size"`

	// Derived per request, never persisted with a meaningful value.
	SignedURL string `json:"signed_url,omitempty"`
}
