package content

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/linkpage/server/internal/model"
)

func TestRenderVCard_fullProfile(t *testing.T) {
	email := "ada@example.com"
	phone := "+15550100"
	website := "https://example.com/ada"
	p := model.Profile{
		ID:          uuid.New(),
		Handle:      "ada",
		DisplayName: "Ada Lovelace",
		Email:       &email,
		Phone:       &phone,
		Website:     &website,
	}

	card := string(RenderVCard(p))

	for _, want := range []string{
		"BEGIN:VCARD\r\n",
		"VERSION:3.0\r\n",
		"FN:Ada Lovelace\r\n",
		"NICKNAME:ada\r\n",
		"EMAIL;TYPE=INTERNET:ada@example.com\r\n",
		"TEL;TYPE=CELL:+15550100\r\n",
		"URL:https://example.com/ada\r\n",
		"END:VCARD\r\n",
	} {
		if !strings.Contains(card, want) {
			t.Errorf("vCard missing %q:\n%s", want, card)
		}
	}
}

func TestRenderVCard_omitsEmptyFields(t *testing.T) {
	p := model.Profile{Handle: "ada", DisplayName: "Ada Lovelace"}
	card := string(RenderVCard(p))

	for _, unwanted := range []string{"EMAIL", "TEL", "URL"} {
		if strings.Contains(card, unwanted) {
			t.Errorf("vCard should omit %s for empty field:\n%s", unwanted, card)
		}
	}
}

func TestRenderVCard_escapesReservedCharacters(t *testing.T) {
	p := model.Profile{Handle: "x", DisplayName: "Smith; Jones, Ltd"}
	card := string(RenderVCard(p))

	if !strings.Contains(card, `FN:Smith\; Jones\, Ltd`) {
		t.Errorf("reserved characters should be escaped:\n%s", card)
	}
}
