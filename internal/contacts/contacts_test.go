package contacts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hexascan-dev/hexascan/internal/models"
)

func TestResolveFullLadder(t *testing.T) {
	site := models.Site{
		TicketContact1Name:  "Ana",
		TicketContact1Email: "ana@example.com",
		TicketContact2Name:  "Ben",
		TicketContact2Email: "ben@example.com",
		TicketContact3Name:  "Cho",
		TicketContact3Email: "cho@example.com",
	}

	resolved := Resolve(site)

	assert.Equal(t, []Contact{
		{Name: "Ana", Email: "ana@example.com"},
		{Name: "Ben", Email: "ben@example.com"},
		{Name: "Cho", Email: "cho@example.com"},
	}, resolved)
}

func TestResolveCompactsGaps(t *testing.T) {
	site := models.Site{
		TicketContact1Name:  "Ana",
		TicketContact1Email: "ana@example.com",
		TicketContact3Name:  "Cho",
		TicketContact3Email: "cho@example.com",
	}

	resolved := Resolve(site)

	// The empty second slot does not leave a dead level in the ladder.
	assert.Equal(t, []Contact{
		{Name: "Ana", Email: "ana@example.com"},
		{Name: "Cho", Email: "cho@example.com"},
	}, resolved)
}

func TestResolveEmptySite(t *testing.T) {
	assert.Empty(t, Resolve(models.Site{}))
}

func TestResolveNameWithoutEmailIsSkipped(t *testing.T) {
	site := models.Site{
		TicketContact1Name: "Ana",
	}

	assert.Empty(t, Resolve(site))
}
