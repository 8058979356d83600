package domain

import "context"

// DesignRequest is the input to the metered decorate operation: a room photo
// plus a description of the desired style.
type DesignRequest struct {
	Description string `json:"description"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

// DesignResult carries the generated design back to the client.
type DesignResult struct {
	ID                string `json:"id"`
	EditedImageBase64 string `json:"edited_image_base64"`
	Analysis          string `json:"analysis"`
	TokensUsed        int    `json:"tokens_used"`
}

// DesignService is the generative pipeline that consumes a granted quota
// token. The quota gate runs before it; the service itself never touches
// entitlement state.
type DesignService interface {
	Decorate(ctx context.Context, userID string, req *DesignRequest) (*DesignResult, error)
}
