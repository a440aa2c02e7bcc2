package agent

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lunabot/luna/internal/apperr"
	"github.com/lunabot/luna/internal/models"
)

// factPattern matches the [SAVE_FACT|subject|fact] annotations the model
// embeds at the end of its answers.
var factPattern = regexp.MustCompile(`\[SAVE_FACT\|([^|\]]+)\|([^\]]+)\]`)

// maxCandidates caps the choice list shown for an ambiguous subject.
const maxCandidates = 5

// Directory is the local contact directory as seen by the fact workflow.
type Directory interface {
	All(ctx context.Context) ([]*models.Contact, error)
	SearchByName(ctx context.Context, name string) ([]*models.Contact, error)
	AppendNote(ctx context.Context, contactID int64, fact string) error
}

// Candidate is one selectable contact for an ambiguous fact subject.
type Candidate struct {
	ContactID    int64
	Name         string
	Organization string
}

// PendingFact is an unresolved choice among several contact candidates.
// Pending facts live in memory only: a restart silently discards them.
type PendingFact struct {
	Token      string
	Subject    string
	Fact       string
	Candidates []Candidate
	CreatedAt  time.Time
}

// Workflow extracts fact annotations from model output and routes each one:
// persist directly, queue for user disambiguation, or drop.
type Workflow struct {
	directory Directory

	mu      sync.Mutex
	pending map[string]*PendingFact

	now func() time.Time
}

func NewWorkflow(directory Directory) *Workflow {
	return &Workflow{
		directory: directory,
		pending:   make(map[string]*PendingFact),
		now:       time.Now,
	}
}

// ExtractAndRoute strips all fact annotations from raw and routes each one
// by the number of matching contacts: zero matches drop the fact, exactly
// one persists it immediately, several queue a pending item for the user.
func (w *Workflow) ExtractAndRoute(ctx context.Context, raw string) (string, []*PendingFact) {
	matches := factPattern.FindAllStringSubmatch(raw, -1)
	clean := strings.TrimSpace(factPattern.ReplaceAllString(raw, ""))

	var items []*PendingFact
	for _, match := range matches {
		subject := strings.TrimSpace(match[1])
		fact := strings.TrimSpace(match[2])

		contacts, err := w.directory.SearchByName(ctx, subject)
		if err != nil {
			log.Printf("Contact lookup for %q failed, dropping fact: %v", subject, err)
			continue
		}

		switch len(contacts) {
		case 0:
			log.Printf("No contact matches %q, dropping fact: %s", subject, fact)
		case 1:
			if err := w.directory.AppendNote(ctx, contacts[0].ContactID, fact); err != nil {
				log.Printf("Failed to save fact for %q: %v", contacts[0].Name, err)
				continue
			}
			log.Printf("Saved fact for %s", contacts[0].Name)
		default:
			items = append(items, w.queue(subject, fact, contacts))
		}
	}

	return clean, items
}

func (w *Workflow) queue(subject, fact string, contacts []*models.Contact) *PendingFact {
	if len(contacts) > maxCandidates {
		contacts = contacts[:maxCandidates]
	}

	candidates := make([]Candidate, 0, len(contacts))
	for _, c := range contacts {
		candidates = append(candidates, Candidate{
			ContactID:    c.ContactID,
			Name:         c.Name,
			Organization: c.Organization,
		})
	}

	item := &PendingFact{
		Token:      strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Subject:    subject,
		Fact:       fact,
		Candidates: candidates,
		CreatedAt:  w.now(),
	}

	w.mu.Lock()
	w.pending[item.Token] = item
	w.mu.Unlock()

	log.Printf("Queued disambiguation %s for %q (%d candidates)", item.Token, subject, len(candidates))
	return item
}

// Resolve applies the user's contact selection. The item is removed before
// the fact is persisted, so a second resolution of the same token fails
// with apperr.ErrNotFound.
func (w *Workflow) Resolve(ctx context.Context, token string, contactID int64) error {
	w.mu.Lock()
	item, ok := w.pending[token]
	if ok {
		delete(w.pending, token)
	}
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("pending fact %s: %w", token, apperr.ErrNotFound)
	}

	if err := w.directory.AppendNote(ctx, contactID, item.Fact); err != nil {
		return fmt.Errorf("failed to save fact: %w", err)
	}
	return nil
}

// Cancel discards the pending item without persisting anything. It reports
// whether the token was still known.
func (w *Workflow) Cancel(token string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	_, ok := w.pending[token]
	if ok {
		delete(w.pending, token)
	}
	return ok
}

// PendingCount reports the number of unresolved items.
func (w *Workflow) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
