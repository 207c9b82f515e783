package models

// PostWithSentiment is a row of the paginated posts listing: the post joined
// with its analysis.
type PostWithSentiment struct {
	PostID    string `json:"post_id"`
	Content   string `json:"content"`
	Sentiment string `json:"sentiment"`
	Emotion   string `json:"emotion"`
}

// ErrorResponse is the standard error body for API endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
