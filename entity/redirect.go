package entity

import (
	"net/http"
	"net/url"
	"qrtrack/lib/validate"
)

// AdHocRedirect is the query of /r?u=<url>
type AdHocRedirect struct {
	Target string `json:"u" validate:"required,http_url"`
}

func (a *AdHocRedirect) Bind(_ *http.Request) error {
	if err := validate.Struct(a); err != nil {
		return err
	}
	u, err := url.Parse(a.Target)
	if err != nil || !u.IsAbs() {
		return ErrNotAbsolute
	}
	return nil
}
