package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
)

var weekdaysDE = [...]string{"Sonntag", "Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag"}

var monthsDE = [...]string{"", "Januar", "Februar", "März", "April", "Mai", "Juni",
	"Juli", "August", "September", "Oktober", "November", "Dezember"}

// buildContext assembles the per-turn context header: the localized current
// time plus any contacts (and their stored facts) whose names match a token
// of the user message.
func (l *Loop) buildContext(ctx context.Context, userMessage string) string {
	var parts []string

	now := l.now().In(l.tz)
	parts = append(parts, fmt.Sprintf("Aktuelle Zeit: %s, %d. %s %d, %s Uhr",
		weekdaysDE[now.Weekday()], now.Day(), monthsDE[now.Month()], now.Year(),
		now.Format("15:04")))

	contacts, err := l.facts.directory.All(ctx)
	if err != nil {
		log.Printf("Failed to load contacts for context: %v", err)
		return strings.Join(parts, "\n")
	}

	var matched []string
	var facts []string

	for _, token := range strings.Fields(userMessage) {
		token = strings.Trim(token, ".,!?:;\"'")
		if len(token) < 3 {
			continue
		}
		lower := strings.ToLower(token)

		for _, contact := range contacts {
			if !strings.Contains(strings.ToLower(contact.Name), lower) {
				continue
			}
			info := contact.Name
			if contact.Organization != "" {
				info += fmt.Sprintf(" (%s)", contact.Organization)
			}
			matched = append(matched, info)

			if contact.Notes != "" {
				for _, line := range strings.Split(contact.Notes, "\n") {
					facts = append(facts, fmt.Sprintf("%s: %s", contact.Name, line))
				}
			}
			break
		}
	}

	if len(matched) > 0 {
		parts = append(parts, "\nErkannte Kontakte:")
		for _, m := range matched {
			parts = append(parts, "- "+m)
		}
	}
	if len(facts) > 0 {
		parts = append(parts, "\nGespeicherte Fakten:")
		for _, f := range facts {
			parts = append(parts, "- "+f)
		}
	}

	return strings.Join(parts, "\n")
}
