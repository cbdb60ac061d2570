package mailer

// Service delivers login codes to an email address.
type Service interface {
	SendLoginCode(toEmail, toName, code string) error
}
