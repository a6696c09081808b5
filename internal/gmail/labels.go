package gmail

import (
	"context"
	"fmt"
	"sort"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Label is a mailbox label.
type Label struct {
	ID   string
	Name string
}

// Service reads the mailbox of the authorized user.
type Service struct {
	api *gmailapi.Service
}

// NewService builds a Gmail API client. Pass option.WithTokenSource for a user token.
func NewService(ctx context.Context, opts ...option.ClientOption) (*Service, error) {
	api, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gmail: create service: %w", err)
	}
	return &Service{api: api}, nil
}

// Labels lists the user's labels sorted by name.
func (s *Service) Labels(ctx context.Context) ([]Label, error) {
	resp, err := s.api.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("gmail: list labels: %w", err)
	}
	labels := make([]Label, 0, len(resp.Labels))
	for _, l := range resp.Labels {
		labels = append(labels, Label{ID: l.Id, Name: l.Name})
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Name < labels[j].Name })
	return labels, nil
}
