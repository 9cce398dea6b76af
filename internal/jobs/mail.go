package jobs

import "strings"

// SendMailPayload is a fully rendered email. The worker delivers it as is.
type SendMailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

func (p SendMailPayload) Validate() error {
	if strings.TrimSpace(p.To) == "" || strings.TrimSpace(p.Subject) == "" {
		return ErrInvalidJobPayload
	}
	return nil
}
