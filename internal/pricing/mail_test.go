package pricing

import "testing"

func TestDetectPricingMail(t *testing.T) {
	cases := []struct {
		name        string
		subject     string
		text        string
		html        string
		attachments []string
		want        bool
	}{
		{
			name:        "tarif subject with csv attachment",
			subject:     "Nouvelle grille tarifaire 2026",
			attachments: []string{"tarifs_2026.csv"},
			want:        true,
		},
		{
			name:    "html price table in body",
			subject: "Mise à jour prix",
			html:    "<table><tr><th>Référence</th><th>Prix</th></tr></table>",
			want:    true,
		},
		{
			name:        "xlsx attachment alone",
			subject:     "Documents",
			attachments: []string{"catalogue.xlsx"},
			want:        true,
		},
		{
			name:    "newsletter",
			subject: "Notre sélection de rentrée",
			text:    "Découvrez nos nouveautés",
			want:    false,
		},
		{
			name:        "invoice pdf is not pricing",
			subject:     "Facture n°1234",
			attachments: []string{"facture.pdf"},
			want:        false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectPricingMail(tc.subject, tc.text, tc.html, tc.attachments)
			if got.IsPricing != tc.want {
				t.Fatalf("IsPricing = %v (score %v), want %v", got.IsPricing, got.Score, tc.want)
			}
		})
	}
}

func TestSenderAddress(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"Papeterie Dupont <contact@dupont.fr>", "contact@dupont.fr"},
		{"contact@dupont.fr", "contact@dupont.fr"},
		{"CONTACT@DUPONT.FR", "contact@dupont.fr"},
		{"\"Ventes\" <ventes@fournisseur.com>", "ventes@fournisseur.com"},
	}
	for _, tc := range cases {
		if got := senderAddress(tc.input); got != tc.want {
			t.Fatalf("senderAddress(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
