package history

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/diogo/codechat/internal/models"
)

type fakeLister struct {
	list []models.ConversationSummary
	err  error
}

func (f *fakeLister) ListConversations(ctx context.Context) ([]models.ConversationSummary, error) {
	return f.list, f.err
}

func sampleConversations() []models.ConversationSummary {
	return []models.ConversationSummary{
		{ID: "a1b2c3d4-0000", Title: "Refactor the parser"},
		{ID: "a1ffeeee-1111", Title: "Login page"},
		{ID: "99887766-2222", Title: "Parser tests"},
		{ID: "42", Title: ""},
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(&fakeLister{list: sampleConversations()})
	ctx := context.Background()

	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr string
	}{
		{"first", "@first", "a1b2c3d4-0000", ""},
		{"last", "@LAST", "42", ""},
		{"index", "2", "a1ffeeee-1111", ""},
		{"exact id wins over index", "42", "42", ""},
		{"index out of range", "7", "", "out of range"},
		{"zero index", "0", "", "out of range"},
		{"exact id", "99887766-2222", "99887766-2222", ""},
		{"unique prefix", "a1b", "a1b2c3d4-0000", ""},
		{"ambiguous prefix", "a1", "", "ambiguous"},
		{"title substring", "login", "a1ffeeee-1111", ""},
		{"ambiguous title", "parser", "", "multiple conversations"},
		{"no match", "zzz", "", "no conversation matching"},
		{"empty", "  ", "", "empty reference"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Resolve(ctx, tt.ref)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Resolve(%q) error = %v, want containing %q", tt.ref, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve(%q) returned error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("Resolve(%q) = %s, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := NewResolver(&fakeLister{}).Resolve(ctx, "@last"); err == nil {
		t.Error("Expected error for an empty list")
	}

	listErr := errors.New("backend down")
	_, err := NewResolver(&fakeLister{err: listErr}).Resolve(ctx, "1")
	if !errors.Is(err, listErr) {
		t.Errorf("Expected wrapped list error, got %v", err)
	}
}

func TestResolver_ResolveWithInfo(t *testing.T) {
	r := NewResolver(&fakeLister{list: sampleConversations()})
	conv, err := r.ResolveWithInfo(context.Background(), "@last")
	if err != nil {
		t.Fatalf("ResolveWithInfo() returned error: %v", err)
	}
	if conv.DisplayTitle() != "Conversation 42" {
		t.Errorf("DisplayTitle() = %s", conv.DisplayTitle())
	}
}

func TestListAliases(t *testing.T) {
	aliases := ListAliases()
	for _, want := range []string{"@first", "@last", "1, 2, 3"} {
		if !strings.Contains(aliases, want) {
			t.Errorf("ListAliases() missing %q", want)
		}
	}
}
