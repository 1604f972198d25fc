package history

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/diogo/codechat/internal/models"
)

// Lister returns the conversations known to the backend
type Lister interface {
	ListConversations(ctx context.Context) ([]models.ConversationSummary, error)
}

// Resolver resolves user-friendly references to conversation IDs
type Resolver struct {
	lister Lister
}

// NewResolver creates a new reference resolver
func NewResolver(lister Lister) *Resolver {
	return &Resolver{lister: lister}
}

// Resolve converts a user-friendly reference to a conversation ID
//
// Supported references, against the backend list order:
//   - "@first", "@last" - first or last conversation
//   - exact id
//   - "1", "2", "3" - by index (1-based)
//   - a unique id prefix
//   - "substring" - match on title (error if multiple matches)
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	conv, err := r.ResolveWithInfo(ctx, ref)
	if err != nil {
		return "", err
	}
	return conv.ID, nil
}

// ResolveWithInfo resolves a reference and returns the matching summary
func (r *Resolver) ResolveWithInfo(ctx context.Context, ref string) (models.ConversationSummary, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return models.ConversationSummary{}, fmt.Errorf("empty reference")
	}

	conversations, err := r.lister.ListConversations(ctx)
	if err != nil {
		return models.ConversationSummary{}, fmt.Errorf("failed to list conversations: %w", err)
	}
	return Match(conversations, ref)
}

// Match resolves ref against an already fetched list
func Match(conversations []models.ConversationSummary, ref string) (models.ConversationSummary, error) {
	var none models.ConversationSummary
	ref = strings.TrimSpace(ref)

	if len(conversations) == 0 {
		return none, fmt.Errorf("no conversations found")
	}

	switch strings.ToLower(ref) {
	case "@first":
		return conversations[0], nil
	case "@last":
		return conversations[len(conversations)-1], nil
	}

	for _, conv := range conversations {
		if conv.ID == ref {
			return conv, nil
		}
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(conversations) {
			return none, fmt.Errorf("index %d out of range (1-%d)", index, len(conversations))
		}
		return conversations[index-1], nil
	}

	var prefixed []models.ConversationSummary
	for _, conv := range conversations {
		if strings.HasPrefix(conv.ID, ref) {
			prefixed = append(prefixed, conv)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], nil
	}

	refLower := strings.ToLower(ref)
	var matches []models.ConversationSummary
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), refLower) {
			matches = append(matches, conv)
		}
	}

	switch len(matches) {
	case 0:
		if len(prefixed) > 1 {
			return none, fmt.Errorf("id prefix '%s' is ambiguous (%d conversations)", ref, len(prefixed))
		}
		return none, fmt.Errorf("no conversation matching '%s'", ref)
	case 1:
		return matches[0], nil
	default:
		var titles []string
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.DisplayTitle()))
		}
		return none, fmt.Errorf("multiple conversations match '%s': %s. Use ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// ListAliases returns information about supported aliases
func ListAliases() string {
	return `Supported references:
  @first         First conversation in the list
  @last          Last conversation in the list
  1, 2, 3        By index (1-based)
  <id>           Conversation id or a unique prefix of it
  "text"         Search by title substring`
}
