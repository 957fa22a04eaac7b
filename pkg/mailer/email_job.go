package mailer

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either set Template+Data, or Subject with Text/HTML for a raw message.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "welcome", "forgot_password", "password_changed", "password_reset", "contact_message"
	Data     map[string]any `json:"data,omitempty"`
}
