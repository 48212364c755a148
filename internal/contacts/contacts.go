package contacts

import "github.com/hexascan-dev/hexascan/internal/models"

// Contact is one entry of a site's escalation ladder.
type Contact struct {
	Name  string
	Email string
}

// Resolve returns the ordered ladder contacts configured on a site, skipping
// unset slots. The result's length is the issue's max escalation level, so a
// gap in the middle compacts the ladder rather than leaving a dead level.
func Resolve(site models.Site) []Contact {
	candidates := []Contact{
		{Name: site.TicketContact1Name, Email: site.TicketContact1Email},
		{Name: site.TicketContact2Name, Email: site.TicketContact2Email},
		{Name: site.TicketContact3Name, Email: site.TicketContact3Email},
	}

	var resolved []Contact

	for _, c := range candidates {
		if c.Email == "" {
			continue
		}
		resolved = append(resolved, c)
	}

	return resolved
}
