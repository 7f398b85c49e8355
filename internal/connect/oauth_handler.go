// internal/connect/oauth_handler.go
package connect

import (
	"fmt"
	"net/http"
)

// OAuthHandler terminates the processor's authorization redirect:
// GET /oauth?code=...&state=...
//
// Responses follow the flow's contract with the processor's hosted page:
// missing params and exchange failures answer 200 with a plain-text body
// (the processor renders it to the creator mid-flow), success answers a 302
// to the post-link landing page.
type OAuthHandler struct {
	service    *Service
	landingURL string
}

func NewOAuthHandler(service *Service, landingURL string) *OAuthHandler {
	return &OAuthHandler{service: service, landingURL: landingURL}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" || state == "" {
		fmt.Fprint(w, "Invalid Params")
		return
	}

	if err := h.service.CompleteLink(r.Context(), code, state); err != nil {
		// Raw error text on purpose: no funds have moved, and the creator
		// needs the real reason their onboarding failed.
		fmt.Fprint(w, err.Error())
		return
	}

	http.Redirect(w, r, h.landingURL, http.StatusFound)
}
