package mailer

import (
	"fmt"
	"strings"

	"barolo/internal/models"
)

// htmlEscaper covers the characters that can break out of markup when a
// guest-supplied value is interpolated into an HTML body.
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

func escapeHTML(value string) string {
	return htmlEscaper.Replace(value)
}

// detailsHTML renders the booking facts as an HTML list. The full variant
// (creation notices) includes contact details and notes; status notices
// carry only name, date, time and guests.
func detailsHTML(b *models.Booking, full bool) string {
	var sb strings.Builder
	sb.WriteString("<ul>")
	item := func(label, value string) {
		sb.WriteString("<li><strong>")
		sb.WriteString(label)
		sb.WriteString(":</strong> ")
		sb.WriteString(escapeHTML(value))
		sb.WriteString("</li>")
	}

	item("Name", b.Name)
	if full {
		item("Email", b.Email)
		item("Phone", b.Phone)
	}
	item("Date", b.Date)
	item("Time", b.Time)
	item("Guests", fmt.Sprintf("%d", b.Guests))
	if full && b.Notes != nil && *b.Notes != "" {
		item("Notes", *b.Notes)
	}

	sb.WriteString("</ul>")
	return sb.String()
}

func detailsText(b *models.Booking, full bool) string {
	lines := []string{"Name: " + b.Name}
	if full {
		lines = append(lines, "Email: "+b.Email, "Phone: "+b.Phone)
	}
	lines = append(lines,
		"Date: "+b.Date,
		"Time: "+b.Time,
		fmt.Sprintf("Guests: %d", b.Guests),
	)
	if full && b.Notes != nil && *b.Notes != "" {
		lines = append(lines, "Notes: "+*b.Notes)
	}
	return strings.Join(lines, "\n")
}

func cancelLinkHTML(cancelURL string) string {
	if cancelURL == "" {
		return ""
	}
	escaped := escapeHTML(cancelURL)
	return fmt.Sprintf(`<p>If you need to cancel, use this link: <a href="%s">%s</a></p>`, escaped, escaped)
}

func cancelLinkText(cancelURL string) string {
	if cancelURL == "" {
		return ""
	}
	return "\n\nCancel link: " + cancelURL
}
