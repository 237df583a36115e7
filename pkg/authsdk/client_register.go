package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Register creates an API client account. Policy failures come back as a
// *ValidationErrorResponse with status 400, a taken username with 409.
func (c *SDKClient) Register(ctx context.Context, username, password1, password2 string) (*UserResponse, error) {
	data := url.Values{
		"username":  {username},
		"password1": {password1},
		"password2": {password2},
	}

	resp, err := c.doForm(ctx, http.MethodPost, "/clients/register", data, nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}
