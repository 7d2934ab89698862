package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bft-labs/penpal/internal/domain"
)

// Selectors holds every CSS selector the pipeline evaluates against the
// target site. Scoped selectors are evaluated relative to their parent
// element, noted per field.
type Selectors struct {
	// Login form.
	Username string
	Password string
	Submit   string

	// Captcha widget. Checkbox and CheckboxAnchor live inside CheckboxFrame;
	// the audio controls live inside ChallengeFrame.
	CheckboxFrame  string
	Checkbox       string
	CheckboxAnchor string
	ChallengeFrame string
	AudioButton    string
	AudioSource    string
	AudioResponse  string
	VerifyButton   string

	// Listing pages. RowAnchor is scoped to ListingRow.
	ListingRow string
	RowAnchor  string
	NextLink   string

	// Detail pages. InmateCell, PanelCell and AddressBlock are scoped to
	// ContactPanel; the address parts are scoped to AddressBlock.
	ContactPanel string
	InmateCell   string
	PanelCell    string
	AddressBlock string
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	ZipCode      string
}

// DefaultSelectors returns the selectors for the pen-pal directory site.
func DefaultSelectors() Selectors {
	return Selectors{
		Username: "#edit-name",
		Password: "#edit-pass",
		Submit:   "#edit-submit",

		CheckboxFrame:  "#user-login-form fieldset iframe",
		Checkbox:       ".recaptcha-checkbox-border",
		CheckboxAnchor: "#recaptcha-anchor",
		ChallengeFrame: `iframe[title*="challenge"]`,
		AudioButton:    "#recaptcha-audio-button",
		AudioSource:    "#audio-source",
		AudioResponse:  "#audio-response",
		VerifyButton:   "#recaptcha-verify-button",

		ListingRow: ".religion-prison-pen-pals-row.views-row",
		RowAnchor:  "a",
		NextLink:   "ul.pager li.next a",

		ContactPanel: ".tablewrapper.penpal-contact-table",
		InmateCell:   "tbody tr:nth-child(3) td:first-child",
		PanelCell:    "td",
		AddressBlock: ".notranslate p",
		AddressLine1: ".address-line1",
		AddressLine2: ".address-line2",
		City:         ".locality",
		State:        ".administrative-area",
		ZipCode:      ".postal-code",
	}
}

func (s *Selectors) fields() map[string]*string {
	return map[string]*string{
		"username":        &s.Username,
		"password":        &s.Password,
		"submit":          &s.Submit,
		"checkbox_frame":  &s.CheckboxFrame,
		"checkbox":        &s.Checkbox,
		"checkbox_anchor": &s.CheckboxAnchor,
		"challenge_frame": &s.ChallengeFrame,
		"audio_button":    &s.AudioButton,
		"audio_source":    &s.AudioSource,
		"audio_response":  &s.AudioResponse,
		"verify_button":   &s.VerifyButton,
		"listing_row":     &s.ListingRow,
		"row_anchor":      &s.RowAnchor,
		"next_link":       &s.NextLink,
		"contact_panel":   &s.ContactPanel,
		"inmate_cell":     &s.InmateCell,
		"panel_cell":      &s.PanelCell,
		"address_block":   &s.AddressBlock,
		"address_line1":   &s.AddressLine1,
		"address_line2":   &s.AddressLine2,
		"city":            &s.City,
		"state":           &s.State,
		"zip_code":        &s.ZipCode,
	}
}

// Apply overrides selectors by key. Unknown keys and empty values are
// rejected.
func (s *Selectors) Apply(overrides map[string]string) error {
	fields := s.fields()

	var unknown []string
	for key, value := range overrides {
		p, ok := fields[key]
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: selector %q is empty", domain.ErrInvalidConfig, key)
		}
		*p = value
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown selectors: %s", domain.ErrInvalidConfig, strings.Join(unknown, ", "))
	}
	return nil
}

// SelectorKeys returns the keys accepted by Apply, sorted.
func SelectorKeys() []string {
	var s Selectors
	keys := make([]string, 0, len(s.fields()))
	for k := range s.fields() {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
