package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrUnauthenticated means the identity provider did not accept the
// presented credential.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

// User is the resolved identity behind a link request. ID is the identity
// provider's subject, treated as an opaque string end to end.
type User struct {
	ID          string
	DisplayName string
}

// Resolver turns an end-user bearer credential into a stable user identity.
// The pairing service never mints user identities itself; approval always
// rides on a credential the identity provider issued.
type Resolver interface {
	Resolve(ctx context.Context, bearer string) (User, error)
}

// HTTPResolver resolves identities against an OIDC-style userinfo endpoint.
type HTTPResolver struct {
	UserinfoURL string
	Client      *http.Client
}

func NewHTTPResolver(userinfoURL string) *HTTPResolver {
	return &HTTPResolver{
		UserinfoURL: userinfoURL,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

type userinfoResponse struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

func (r *HTTPResolver) Resolve(ctx context.Context, bearer string) (User, error) {
	if bearer == "" {
		return User{}, ErrUnauthenticated
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.UserinfoURL, nil)
	if err != nil {
		return User{}, fmt.Errorf("identity: build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := r.Client.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("identity: userinfo request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return User{}, ErrUnauthenticated
	case resp.StatusCode != http.StatusOK:
		return User{}, fmt.Errorf("identity: userinfo returned %d", resp.StatusCode)
	}

	var body userinfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return User{}, fmt.Errorf("identity: decode userinfo: %w", err)
	}
	if body.Sub == "" {
		return User{}, fmt.Errorf("identity: userinfo response missing sub")
	}

	return User{ID: body.Sub, DisplayName: body.Name}, nil
}
