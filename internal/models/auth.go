package models

// LoginRequest holds credentials for authenticating an administrator.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the backend's answer to a successful login.
type LoginResponse struct {
	Token string `json:"token"`
}

// RegisterRequest is the administrator sign-up payload.
type RegisterRequest struct {
	AdminName       string `json:"adminName" validate:"required"`
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// PasswordCriteria lists which strength rules a password satisfies.
type PasswordCriteria struct {
	MinLength    bool `json:"minLength"`
	HasNumber    bool `json:"hasNumber"`
	HasUppercase bool `json:"hasUppercase"`
	HasLowercase bool `json:"hasLowercase"`
	HasSymbol    bool `json:"hasSymbol"`
}

// Met counts satisfied criteria.
func (c PasswordCriteria) Met() int {
	n := 0
	for _, ok := range []bool{c.MinLength, c.HasNumber, c.HasUppercase, c.HasLowercase, c.HasSymbol} {
		if ok {
			n++
		}
	}
	return n
}

// PasswordStrength is the registration form's strength meter.
type PasswordStrength struct {
	Criteria PasswordCriteria `json:"criteria"`
	Label    string           `json:"label"`
	Class    string           `json:"class"`
}
