package connectors

import "papeterie/internal"

// MailConnector pulls unread supplier mail from one mailbox provider.
type MailConnector interface {
	FetchInbox(label string, max int) ([]internal.FetchedMailMessage, error)
}
