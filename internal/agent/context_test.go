package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lunabot/luna/internal/models"
)

func TestBuildContextFormatsLocalizedTime(t *testing.T) {
	l := newTestLoop(&scriptedClient{}, &fakeRunner{}, &memConversations{}, &fakeDirectory{})
	l.now = func() time.Time { return time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC) }

	header := l.buildContext(context.Background(), "Hallo")
	require.Equal(t, "Aktuelle Zeit: Montag, 31. August 2026, 09:05 Uhr", header)
}

func TestBuildContextMatchesContactsAndFacts(t *testing.T) {
	dir := &fakeDirectory{contacts: []*models.Contact{
		{ContactID: 1, Name: "Julia Maier", Organization: "ACME", Notes: "2026-08-01: mag Kaffee\n2026-08-10: hat einen Hund"},
		{ContactID: 2, Name: "Max Huber"},
	}}
	l := newTestLoop(&scriptedClient{}, &fakeRunner{}, &memConversations{}, dir)
	l.now = func() time.Time { return time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC) }

	header := l.buildContext(context.Background(), "Was macht Julia?")
	require.Contains(t, header, "Erkannte Kontakte:")
	require.Contains(t, header, "- Julia Maier (ACME)")
	require.Contains(t, header, "Gespeicherte Fakten:")
	require.Contains(t, header, "- Julia Maier: 2026-08-01: mag Kaffee")
	require.Contains(t, header, "- Julia Maier: 2026-08-10: hat einen Hund")
	require.NotContains(t, header, "Max Huber")
}

func TestBuildContextIgnoresShortTokens(t *testing.T) {
	dir := &fakeDirectory{contacts: []*models.Contact{
		{ContactID: 1, Name: "Jo Berger"},
	}}
	l := newTestLoop(&scriptedClient{}, &fakeRunner{}, &memConversations{}, dir)

	// "Jo" is below the match threshold; no contact section appears.
	header := l.buildContext(context.Background(), "Ist Jo da?")
	require.NotContains(t, header, "Erkannte Kontakte:")
}
