package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lunabot/luna/internal/apperr"
	"github.com/lunabot/luna/internal/models"
)

type savedNote struct {
	contactID int64
	fact      string
}

type fakeDirectory struct {
	mu       sync.Mutex
	contacts []*models.Contact
	saved    []savedNote
	noteErr  error
}

func (d *fakeDirectory) All(ctx context.Context) ([]*models.Contact, error) {
	return d.contacts, nil
}

func (d *fakeDirectory) SearchByName(ctx context.Context, name string) ([]*models.Contact, error) {
	var out []*models.Contact
	for _, c := range d.contacts {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(name)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (d *fakeDirectory) AppendNote(ctx context.Context, contactID int64, fact string) error {
	if d.noteErr != nil {
		return d.noteErr
	}
	d.mu.Lock()
	d.saved = append(d.saved, savedNote{contactID: contactID, fact: fact})
	d.mu.Unlock()
	return nil
}

func (d *fakeDirectory) savedNotes() []savedNote {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.saved
}

func TestExtractAndRouteStripsAnnotations(t *testing.T) {
	dir := &fakeDirectory{}
	w := NewWorkflow(dir)

	clean, items := w.ExtractAndRoute(context.Background(),
		"Alles klar, gespeichert! [SAVE_FACT|Max|mag Kaffee]")

	require.Equal(t, "Alles klar, gespeichert!", clean)
	require.Empty(t, items)
}

func TestExtractAndRouteWithoutAnnotationsIsUnchanged(t *testing.T) {
	w := NewWorkflow(&fakeDirectory{})

	clean, items := w.ExtractAndRoute(context.Background(), "Guten Morgen!")

	require.Equal(t, "Guten Morgen!", clean)
	require.Empty(t, items)
	require.Equal(t, 0, w.PendingCount())
}

func TestZeroMatchDropsFactWithoutMutation(t *testing.T) {
	dir := &fakeDirectory{}
	w := NewWorkflow(dir)

	_, items := w.ExtractAndRoute(context.Background(), "[SAVE_FACT|Unbekannt|spielt Geige]")

	require.Empty(t, items)
	require.Empty(t, dir.savedNotes())
	require.Equal(t, 0, w.PendingCount())
}

func TestSingleMatchPersistsImmediately(t *testing.T) {
	dir := &fakeDirectory{contacts: []*models.Contact{
		{ContactID: 7, Name: "Max Huber"},
	}}
	w := NewWorkflow(dir)

	_, items := w.ExtractAndRoute(context.Background(), "[SAVE_FACT|Max Huber|mag Kaffee]")

	require.Empty(t, items)
	require.Equal(t, []savedNote{{contactID: 7, fact: "mag Kaffee"}}, dir.savedNotes())
	require.Equal(t, 0, w.PendingCount())
}

func TestMultipleAnnotationsRouteIndependently(t *testing.T) {
	dir := &fakeDirectory{contacts: []*models.Contact{
		{ContactID: 1, Name: "Anna Gruber"},
		{ContactID: 2, Name: "Max Huber"},
		{ContactID: 3, Name: "Max Bauer"},
	}}
	w := NewWorkflow(dir)

	clean, items := w.ExtractAndRoute(context.Background(),
		"Erledigt. [SAVE_FACT|Anna Gruber|hat morgen Urlaub] [SAVE_FACT|Max|wohnt in Graz] [SAVE_FACT|Niemand|egal]")

	require.Equal(t, "Erledigt.", clean)
	// One direct save, one ambiguous, one dropped.
	require.Equal(t, []savedNote{{contactID: 1, fact: "hat morgen Urlaub"}}, dir.savedNotes())
	require.Len(t, items, 1)
	require.Equal(t, "Max", items[0].Subject)
	require.Equal(t, "wohnt in Graz", items[0].Fact)
	require.Len(t, items[0].Candidates, 2)
	require.Equal(t, 1, w.PendingCount())
}

func TestAmbiguousMatchCapsCandidates(t *testing.T) {
	var contacts []*models.Contact
	for i := 1; i <= 8; i++ {
		contacts = append(contacts, &models.Contact{ContactID: int64(i), Name: fmt.Sprintf("Max %d", i)})
	}
	dir := &fakeDirectory{contacts: contacts}
	w := NewWorkflow(dir)

	_, items := w.ExtractAndRoute(context.Background(), "[SAVE_FACT|Max|mag Tee]")

	require.Len(t, items, 1)
	require.Len(t, items[0].Candidates, maxCandidates)
	require.NotEmpty(t, items[0].Token)
	require.Len(t, items[0].Token, 8)
}

func TestResolvePersistsExactlyOnce(t *testing.T) {
	dir := &fakeDirectory{contacts: []*models.Contact{
		{ContactID: 1, Name: "Max Huber"},
		{ContactID: 2, Name: "Max Bauer"},
	}}
	w := NewWorkflow(dir)

	_, items := w.ExtractAndRoute(context.Background(), "[SAVE_FACT|Max|mag Kaffee]")
	require.Len(t, items, 1)
	token := items[0].Token

	require.NoError(t, w.Resolve(context.Background(), token, 2))
	require.Equal(t, []savedNote{{contactID: 2, fact: "mag Kaffee"}}, dir.savedNotes())
	require.Equal(t, 0, w.PendingCount())

	// Second resolution of the same token fails; nothing is saved twice.
	err := w.Resolve(context.Background(), token, 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	require.Len(t, dir.savedNotes(), 1)
}

func TestResolveUnknownToken(t *testing.T) {
	w := NewWorkflow(&fakeDirectory{})

	err := w.Resolve(context.Background(), "deadbeef", 1)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestResolveKeepsItemConsumedOnSaveFailure(t *testing.T) {
	dir := &fakeDirectory{contacts: []*models.Contact{
		{ContactID: 1, Name: "Max Huber"},
		{ContactID: 2, Name: "Max Bauer"},
	}}
	w := NewWorkflow(dir)

	_, items := w.ExtractAndRoute(context.Background(), "[SAVE_FACT|Max|mag Kaffee]")
	require.Len(t, items, 1)

	dir.noteErr = errors.New("db down")
	err := w.Resolve(context.Background(), items[0].Token, 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, apperr.ErrNotFound)

	// The token was consumed before the persist attempt.
	require.Equal(t, 0, w.PendingCount())
}

func TestCancelDiscardsPendingItem(t *testing.T) {
	dir := &fakeDirectory{contacts: []*models.Contact{
		{ContactID: 1, Name: "Max Huber"},
		{ContactID: 2, Name: "Max Bauer"},
	}}
	w := NewWorkflow(dir)

	_, items := w.ExtractAndRoute(context.Background(), "[SAVE_FACT|Max|mag Kaffee]")
	require.Len(t, items, 1)
	token := items[0].Token

	require.True(t, w.Cancel(token))
	require.False(t, w.Cancel(token))
	require.Empty(t, dir.savedNotes())
	require.ErrorIs(t, w.Resolve(context.Background(), token, 1), apperr.ErrNotFound)
}
