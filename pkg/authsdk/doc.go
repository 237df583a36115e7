/*
Package authsdk provides a client SDK for the currex authentication service.

# SDKClient vs Session

The package is organized around two main types:

  - SDKClient: unauthenticated operations (token gain, refresh and revoke,
    registration, health, JWKS) and creation of sessions
  - Session: bearer-authenticated operations with automatic token refresh

Create an SDKClient and gain a session:

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Authenticate(ctx, authsdk.GainRequest{
		Username: "bob_1",
		Password: password,
		DeviceID: "phone",
	})

Use the session for protected endpoints. When the access token is close to
expiry the session exchanges its refresh token first:

	me, err := session.GetMe(ctx)

	// Requires the "all" scope
	user, err := session.GetUser(ctx, 7)

Revoke the session's own tokens when done:

	revoked, err := session.Revoke(ctx)

# Devices

Each gain binds the pair to a device id ("none" when unset). Gaining again
for the same device revokes the tokens issued to it before. Presenting a
refresh token that was already used revokes every token of that device; the
session then fails with ErrRevokedRefreshToken's description and has to be
re-created with Authenticate.

# Errors

Failed calls return *APIError, or *ValidationErrorResponse for registration
input problems:

	_, err := client.Register(ctx, "bob_1", "secret-one", "secret-two")

	var verr *authsdk.ValidationErrorResponse
	if errors.As(err, &verr) {
		fmt.Println(verr.Errors["password"])
	}

	var apiErr *authsdk.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden {
		// disabled user, foreign or replayed refresh token
	}
*/
package authsdk
