package handlers

import (
	"net/http"

	pkgauth "github.com/BradenHooton/staffguard/pkg/auth"
	pkghttp "github.com/BradenHooton/staffguard/pkg/http"
)

// PasswordHandler scores candidate passwords against a policy
type PasswordHandler struct {
	policy pkgauth.PasswordPolicy
}

// NewPasswordHandler creates a new PasswordHandler
func NewPasswordHandler(policy pkgauth.PasswordPolicy) *PasswordHandler {
	return &PasswordHandler{policy: policy}
}

// ValidatePasswordRequest carries the candidate password.
// No field rules: an empty or over-long password is judged by the policy and reported in the result.
type ValidatePasswordRequest struct {
	Password string `json:"password"`
}

// Validate returns the full validation result; a weak password is still a 200
// @Router /v1/passwords/validate [post]
func (h *PasswordHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidatePasswordRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, h.policy.Validate(req.Password))
}
