package api

import "context"

type qnaRequest struct {
	Question string `json:"question"`
}

type qnaResponse struct {
	Answer string `json:"answer"`
}

// Ask sends a regulation question to the Q&A service.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	var resp qnaResponse
	if err := c.postJSON(ctx, c.qnaBaseURL, "/api/qna", qnaRequest{Question: question}, &resp); err != nil {
		return "", err
	}
	return resp.Answer, nil
}
