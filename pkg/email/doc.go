// Package email provides transactional email delivery for subscription
// lifecycle notices.
//
// Production uses the Postmark transactional API; local development uses
// DevSender, which writes each email to disk as an HTML file plus JSON
// metadata so notices can be inspected without an outbound mail service.
//
// The subscription notifier sends through the EmailSender interface and
// never blocks on delivery, so a mail outage cannot stall webhook
// processing.
package email
