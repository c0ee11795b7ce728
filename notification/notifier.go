// Package notification sends staff notifications for inbound messages
package notification

import (
	"context"

	"github.com/gmaiocc/itic-website-sub000/v1/models"
)

// Notifier tells the club about a new contact message
type Notifier interface {
	NotifyContact(ctx context.Context, contact *models.Contact) error
}

// Disabled is used when no email provider is configured
type Disabled struct{}

func (Disabled) NotifyContact(context.Context, *models.Contact) error { return nil }
