// Package rabbitmq publishes outbound notifications (study reminders and
// account emails) to a RabbitMQ topic exchange. Delivery to users is done by
// separate consumers bound to the exchange; the job workers only hand the
// messages off.
//
// Routing keys:
//
//	notification.reminder
//	email.verification
//	email.login_code
//	email.welcome
package rabbitmq
